package core

import (
	"context"
	"errors"
	"testing"
)

type fakeTransport struct {
	name     string
	startErr error
	stopErr  error
	log      *[]string
}

func (f *fakeTransport) Name() string { return f.name }

func (f *fakeTransport) Start(ctx context.Context) error {
	*f.log = append(*f.log, "start:"+f.name)
	return f.startErr
}

func (f *fakeTransport) Stop(ctx context.Context) error {
	*f.log = append(*f.log, "stop:"+f.name)
	return f.stopErr
}

func TestTransportManagerRegisterStartStop(t *testing.T) {
	var calls []string
	mgr := NewTransportManager()
	if err := mgr.Register(&fakeTransport{name: "gateway", log: &calls}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := mgr.Register(&fakeTransport{name: "second", log: &calls}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := mgr.StartAll(context.Background()); err != nil {
		t.Fatalf("start all: %v", err)
	}
	if err := mgr.StopAll(context.Background()); err != nil {
		t.Fatalf("stop all: %v", err)
	}
	want := []string{"start:gateway", "start:second", "stop:second", "stop:gateway"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", calls, want)
		}
	}
}

func TestTransportManagerDuplicateRegister(t *testing.T) {
	var calls []string
	mgr := NewTransportManager()
	if err := mgr.Register(&fakeTransport{name: "gateway", log: &calls}); err != nil {
		t.Fatalf("register first: %v", err)
	}
	err := mgr.Register(&fakeTransport{name: "gateway", log: &calls})
	if !errors.Is(err, errTransportExists) {
		t.Fatalf("expected errTransportExists, got %v", err)
	}
}

func TestTransportManagerRegisterNil(t *testing.T) {
	mgr := NewTransportManager()
	if err := mgr.Register(nil); !errors.Is(err, errInvalidArguments) {
		t.Fatalf("expected errInvalidArguments, got %v", err)
	}
}

func TestTransportManagerStartFailureRollsBack(t *testing.T) {
	var calls []string
	mgr := NewTransportManager()
	_ = mgr.Register(&fakeTransport{name: "ok", log: &calls})
	_ = mgr.Register(&fakeTransport{name: "bad", log: &calls, startErr: errors.New("bind failed")})

	if err := mgr.StartAll(context.Background()); err == nil {
		t.Fatalf("expected start error")
	}
	want := []string{"start:ok", "start:bad", "stop:ok"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", calls, want)
		}
	}
}
