package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yeisme/blobdrive/pkg/scheduler"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Fatal("condition not met in time")
}

func TestRunNowRecordsStatus(t *testing.T) {
	s, err := scheduler.NewScheduler(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() { _ = s.Stop() })

	done := make(chan struct{}, 1)

	if err := s.AddCron("ok", "0 0 1 1 *", func(context.Context) error {
		done <- struct{}{}
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	if err := s.AddCron("fails", "0 0 1 1 *", func(context.Context) error {
		return errors.New("boom")
	}); err != nil {
		t.Fatal(err)
	}

	if err := s.AddCron("ok", "* * * * *", func(context.Context) error { return nil }); err == nil {
		t.Error("duplicate job name accepted")
	}

	s.Start()

	if err := s.RunNow("ok"); err != nil {
		t.Fatal(err)
	}

	if err := s.RunNow("fails"); err != nil {
		t.Fatal(err)
	}

	<-done

	waitFor(t, func() bool {
		infos := s.GetJobInfos()
		return len(infos) == 2 && infos[0].Status == scheduler.StatusError && infos[1].Runs == 1 && infos[1].Status == scheduler.StatusScheduled
	})

	infos := s.GetJobInfos()
	if infos[0].Name != "fails" || infos[0].Status != scheduler.StatusError || infos[0].Error != "boom" {
		t.Errorf("fails job = %+v", infos[0])
	}

	if infos[1].LastSuccess.IsZero() {
		t.Errorf("ok job = %+v", infos[1])
	}

	if err := s.RunNow("missing"); err == nil {
		t.Error("RunNow(missing) should fail")
	}
}
