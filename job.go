package qalarm

// shotJob is a batch of consecutive shots handed to one worker.
type shotJob struct {
	ID    int
	Shots int
}
