package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// EmployeeLoginKey returns the cache key for an employee's login session.
func (r *CacheKeyStruct) EmployeeLoginKey(employeeID int) string {
	return fmt.Sprintf("login:%d", employeeID)
}

// EmployeeAnswersKey returns the cache key mirroring an employee's
// in-flight answers for one exam (restores the UI after a reconnect).
func (r *CacheKeyStruct) EmployeeAnswersKey(examID string, employeeID int) string {
	return fmt.Sprintf("employee:%d:exam:%s:answers", employeeID, examID)
}

// ExamGroupsKey returns the cache key for an exam's group list.
func (r *CacheKeyStruct) ExamGroupsKey(examID string) string {
	return fmt.Sprintf("exam:%s:groups", examID)
}

// GroupItemsKey returns the cache key for a group's question items.
func (r *CacheKeyStruct) GroupItemsKey(groupID string) string {
	return fmt.Sprintf("group:%s:items", groupID)
}

var CacheKey = NewCacheKeyStruct()
