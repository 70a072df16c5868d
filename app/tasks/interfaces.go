package tasks

// TaskSchedulerInterface defines the interface for background task scheduling.
// Used by the main application to manage the worker pool and enqueue work.
// Example usage:
//
//	scheduler := NewScheduler(configCache, postRepo, configRepo, tracker, pipeline)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewCleanupTask(postRepo, configRepo, maxAgeDays, cleanupIntervalDays))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
