package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentQuestionOrderKey returns the cache key holding a student's shuffled
// question order for a quiz.
func (r *CacheKeyStruct) StudentQuestionOrderKey(quizID, studentID string) string {
	return fmt.Sprintf("student:%s:quiz:%s:question_order", studentID, quizID)
}

// QuizMonitorChannel returns the Redis PubSub channel name for a quiz monitor.
func (r *CacheKeyStruct) QuizMonitorChannel(quizID string) string {
	return fmt.Sprintf("quiz:%s:monitor", quizID)
}

var CacheKey = NewCacheKeyStruct()
