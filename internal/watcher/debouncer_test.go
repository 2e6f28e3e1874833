package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan []FileEvent) []FileEvent {
	t.Helper()
	select {
	case batch := <-ch:
		return batch
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for batch")
		return nil
	}
}

func TestDebouncer_Coalescing(t *testing.T) {
	tests := []struct {
		name string
		ops  []Operation
		want []Operation
	}{
		{"single modify", []Operation{OpModify}, []Operation{OpModify}},
		{"repeated modify", []Operation{OpModify, OpModify, OpModify}, []Operation{OpModify}},
		{"create then modify", []Operation{OpCreate, OpModify}, []Operation{OpCreate}},
		{"delete then create", []Operation{OpDelete, OpCreate}, []Operation{OpModify}},
		{"modify then delete", []Operation{OpModify, OpDelete}, []Operation{OpDelete}},
		{"create then delete", []Operation{OpCreate, OpDelete}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a debouncer with a short window
			d := NewDebouncer(20*time.Millisecond, 4, nil)
			defer d.Stop()

			// When: events for one path arrive back to back
			for _, op := range tt.ops {
				d.Add(FileEvent{Path: "/tmp/a.yaml", Operation: op})
			}

			// Then: at most one batch with the merged operation is emitted
			if tt.want == nil {
				select {
				case batch := <-d.Output():
					t.Fatalf("unexpected batch %v", batch)
				case <-time.After(100 * time.Millisecond):
				}
				return
			}
			batch := receive(t, d.Output())
			require.Len(t, batch, len(tt.want))
			assert.Equal(t, tt.want[0], batch[0].Operation)
		})
	}
}

func TestDebouncer_BatchesPathsSorted(t *testing.T) {
	d := NewDebouncer(20*time.Millisecond, 4, nil)
	defer d.Stop()

	d.Add(FileEvent{Path: "/b", Operation: OpModify})
	d.Add(FileEvent{Path: "/a", Operation: OpModify})

	batch := receive(t, d.Output())
	require.Len(t, batch, 2)
	assert.Equal(t, "/a", batch[0].Path)
	assert.Equal(t, "/b", batch[1].Path)
}

func TestDebouncer_StopClosesOutputAndIgnoresAdds(t *testing.T) {
	d := NewDebouncer(10*time.Millisecond, 1, nil)
	d.Stop()
	d.Stop()

	d.Add(FileEvent{Path: "/a", Operation: OpModify})

	_, ok := <-d.Output()
	assert.False(t, ok)
}

func TestOperation_String(t *testing.T) {
	assert.Equal(t, "CREATE", OpCreate.String())
	assert.Equal(t, "MODIFY", OpModify.String())
	assert.Equal(t, "DELETE", OpDelete.String())
	assert.Equal(t, "RENAME", OpRename.String())
	assert.Equal(t, "UNKNOWN", Operation(42).String())
}

func TestOptions_WithDefaults(t *testing.T) {
	got := Options{DebounceWindow: time.Second}.WithDefaults()

	assert.Equal(t, time.Second, got.DebounceWindow)
	assert.Equal(t, DefaultOptions().PollInterval, got.PollInterval)
	assert.Equal(t, DefaultOptions().EventBufferSize, got.EventBufferSize)
}
