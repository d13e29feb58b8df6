package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStartSchedulerRejectsBadCron(t *testing.T) {
	d, _ := newTestDispenser(t)
	_, err := d.StartScheduler(SchedulerOptions{RestockCron: "every tuesday"})
	require.Error(t, err)
}

func TestStartSchedulerRegistersJobs(t *testing.T) {
	d, _ := newTestDispenser(t)
	sched, err := d.StartScheduler(SchedulerOptions{
		Location:    time.UTC,
		RestockCron: "0 4 * * *",
		Nightly:     []func(){func() {}},
	})
	require.NoError(t, err)
	require.Len(t, sched.Jobs(), 3)
	require.NoError(t, sched.Shutdown())
}
