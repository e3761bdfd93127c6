// Package acceptance is a test set every history.Recorder implementation must pass.
package acceptance

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ngicks/varpoll/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleDate = time.Date(2023, time.April, 23, 17, 24, 46, 123000000, time.UTC)

// TestRecorder checks the history.Recorder contract.
//
// newRecorder is called once per sub test and must return an empty Recorder
// holding at least 16 records.
func TestRecorder(t *testing.T, newRecorder func() history.Recorder) {
	t.Run("round trips every field", func(t *testing.T) {
		testRecorder_round_trips_every_field(t, newRecorder())
	})
	t.Run("lists newest first filtered by poller", func(t *testing.T) {
		testRecorder_lists_newest_first_filtered_by_poller(t, newRecorder())
	})
	t.Run("limit", func(t *testing.T) {
		testRecorder_limit(t, newRecorder())
	})
	t.Run("unknown poller", func(t *testing.T) {
		list, err := newRecorder().List(context.Background(), "nonexistent", 0)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func ids(records []history.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Id)
	}
	return out
}

func testRecorder_round_trips_every_field(t *testing.T, recorder history.Recorder) {
	ctx := context.Background()
	rec := history.Record{
		Id:         "1",
		PollerId:   "poller",
		Generation: 12,
		StartedAt:  sampleDate,
		Elapsed:    1500 * time.Microsecond,
		Next:       30 * time.Second,
		Err:        "connection refused",
		Rearmed:    true,
	}
	require.NoError(t, recorder.Record(ctx, rec))

	list, err := recorder.List(ctx, "poller", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)

	got := list[0]
	// Stores may change the location; compare instants.
	assert.True(t, got.StartedAt.Equal(rec.StartedAt), "expected %s, got %s", rec.StartedAt, got.StartedAt)
	got.StartedAt = rec.StartedAt
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Fatalf("not equal. diff = %s", diff)
	}
}

func testRecorder_lists_newest_first_filtered_by_poller(t *testing.T, recorder history.Recorder) {
	ctx := context.Background()
	for i, pollerId := range []string{"a", "b", "a", "a", "b"} {
		require.NoError(t, recorder.Record(ctx, history.Record{
			Id:         string(rune('0' + i)),
			PollerId:   pollerId,
			Generation: uint64(i + 1),
			StartedAt:  sampleDate.Add(time.Duration(i) * time.Second),
		}))
	}

	list, err := recorder.List(ctx, "a", 0)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"3", "2", "0"}, ids(list)); diff != "" {
		t.Fatalf("not equal. diff = %s", diff)
	}

	list, err = recorder.List(ctx, "b", -1)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"4", "1"}, ids(list)); diff != "" {
		t.Fatalf("not equal. diff = %s", diff)
	}
}

func testRecorder_limit(t *testing.T, recorder history.Recorder) {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, recorder.Record(ctx, history.Record{
			Id:         string(rune('0' + i)),
			PollerId:   "a",
			Generation: uint64(i + 1),
			StartedAt:  sampleDate.Add(time.Duration(i) * time.Second),
		}))
	}

	list, err := recorder.List(ctx, "a", 2)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"4", "3"}, ids(list)); diff != "" {
		t.Fatalf("not equal. diff = %s", diff)
	}
}
