package common

import "testing"

func TestGLULStatusBusyReflectsSharedFlag(t *testing.T) {
	status := NewGLULStatus(GLULConfig{ID: 0, NumCores: 4, NumWarps: 4, NumLanes: 16})
	if status.Busy() {
		t.Fatal("new status should not be busy")
	}
	status.BusyFlag().Store(true)
	if !status.Busy() {
		t.Fatal("expected Busy() to observe the writer's Store through the shared flag")
	}
}
