package worker

import (
	"time"

	"github.com/hibiken/asynq"
)

// NewServer creates a new Asynq server for processing import tasks.
func NewServer(redisURL string) *asynq.Server {
	opt, err := ParseRedisURL(redisURL)
	if err != nil {
		panic("failed to parse Redis URL: " + err.Error())
	}

	return asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: 10,
		},
	)
}

// NewScheduler creates the Asynq scheduler that drives periodic tasks.
func NewScheduler(redisURL string) *asynq.Scheduler {
	opt, err := ParseRedisURL(redisURL)
	if err != nil {
		panic("failed to parse Redis URL: " + err.Error())
	}

	loc, _ := time.LoadLocation("UTC")
	return asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: loc})
}
