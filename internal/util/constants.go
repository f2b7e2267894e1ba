package util

// 缓存键
const (
	CacheKeyPublishedCourses = "catalog:published"
)
