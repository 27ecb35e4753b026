package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"hhspend/internal/amqp"
	"hhspend/internal/core"
	"hhspend/internal/source"
	"hhspend/internal/source/memory"
	"hhspend/internal/storage"
)

type fakeStore struct {
	saved    *core.Forest
	mult     core.Multipliers
	info     storage.ImportInfo
	saveErr  error
	closeErr error
	closed   bool
}

func (f *fakeStore) SaveDataset(_ context.Context, forest *core.Forest, m core.Multipliers, info storage.ImportInfo) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved, f.mult, f.info = forest, m, info
	return nil
}

func (f *fakeStore) Close() error {
	f.closed = true
	return f.closeErr
}

type fakePublisher struct {
	published []*amqp.ImportRequestMessage
	err       error
	closed    bool
}

func (f *fakePublisher) PublishImportRequest(_ context.Context, msg *amqp.ImportRequestMessage) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func seededOpener(t *testing.T) SourceOpener {
	t.Helper()
	ds, err := memory.NewSeeded()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return func(context.Context, *amqp.ImportRequestMessage) (source.Dataset, error) {
		return ds, nil
	}
}

func TestImportService_Import(t *testing.T) {
	store := &fakeStore{}
	svc := NewImportService(store, nil, seededOpener(t))
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	res, err := svc.Import(context.Background(), amqp.NewImportRequestMessage("xlsx", "hes.xlsx", ""))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if store.saved == nil || store.saved.Len() != res.Categories {
		t.Fatalf("store received %v, result %+v", store.saved, res)
	}
	if res.Roots != len(store.saved.Roots()) || res.Roots == 0 {
		t.Errorf("unexpected roots %d", res.Roots)
	}
	if res.Multipliers == 0 {
		t.Error("expected seeded multipliers to be imported")
	}
	if store.info.Source != "xlsx" || store.info.Location != "hes.xlsx" || !store.info.ImportedAt.Equal(fixed) {
		t.Errorf("unexpected import info %+v", store.info)
	}
}

func TestImportService_ImportErrors(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name  string
		store *fakeStore
		open  SourceOpener
		req   *amqp.ImportRequestMessage
		want  error
	}{
		{
			name:  "invalid request",
			store: &fakeStore{},
			open:  seededOpener(t),
			req:   &amqp.ImportRequestMessage{},
			want:  amqp.ErrInvalidMessage,
		},
		{
			name:  "no opener",
			store: &fakeStore{},
			req:   amqp.NewImportRequestMessage("xlsx", "", ""),
			want:  ErrNoSource,
		},
		{
			name:  "open fails",
			store: &fakeStore{},
			open: func(context.Context, *amqp.ImportRequestMessage) (source.Dataset, error) {
				return nil, boom
			},
			req:  amqp.NewImportRequestMessage("sheets", "", ""),
			want: boom,
		},
		{
			name:  "empty forest",
			store: &fakeStore{},
			open: func(context.Context, *amqp.ImportRequestMessage) (source.Dataset, error) {
				return memory.New(core.NewForest(), core.Multipliers{}), nil
			},
			req:  amqp.NewImportRequestMessage("xlsx", "", ""),
			want: storage.ErrEmptyDataset,
		},
		{
			name:  "save fails",
			store: &fakeStore{saveErr: boom},
			open:  seededOpener(t),
			req:   amqp.NewImportRequestMessage("xlsx", "", ""),
			want:  boom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewImportService(tt.store, nil, tt.open)
			_, err := svc.Import(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Import() error = %v, want %v", err, tt.want)
			}
			if tt.store.saved != nil {
				t.Error("nothing should be saved on failure")
			}
		})
	}
}

func TestImportService_RequestImport(t *testing.T) {
	t.Run("queued when publisher available", func(t *testing.T) {
		store := &fakeStore{}
		pub := &fakePublisher{}
		svc := NewImportService(store, pub, seededOpener(t))

		queued, err := svc.RequestImport(context.Background(), amqp.NewImportRequestMessage("xlsx", "s3://b/k.xlsx", ""))
		if err != nil || !queued {
			t.Fatalf("RequestImport() = %v, %v", queued, err)
		}
		if len(pub.published) != 1 || pub.published[0].Location != "s3://b/k.xlsx" {
			t.Fatalf("unexpected published messages %+v", pub.published)
		}
		if store.saved != nil {
			t.Error("queued import must not run inline")
		}
	})

	t.Run("inline without publisher", func(t *testing.T) {
		store := &fakeStore{}
		svc := NewImportService(store, nil, seededOpener(t))

		queued, err := svc.RequestImport(context.Background(), amqp.NewImportRequestMessage("xlsx", "", ""))
		if err != nil || queued {
			t.Fatalf("RequestImport() = %v, %v", queued, err)
		}
		if store.saved == nil {
			t.Error("expected inline import")
		}
	})

	t.Run("publish failure", func(t *testing.T) {
		pub := &fakePublisher{err: amqp.ErrCircuitOpen}
		svc := NewImportService(&fakeStore{}, pub, seededOpener(t))

		_, err := svc.RequestImport(context.Background(), amqp.NewImportRequestMessage("xlsx", "", ""))
		if !errors.Is(err, amqp.ErrCircuitOpen) {
			t.Fatalf("expected circuit open error, got %v", err)
		}
	})
}

func TestImportService_HandleImportRequest(t *testing.T) {
	store := &fakeStore{}
	svc := NewImportService(store, nil, seededOpener(t))
	if err := svc.HandleImportRequest(context.Background(), amqp.NewImportRequestMessage("sheets", "", "")); err != nil {
		t.Fatalf("HandleImportRequest: %v", err)
	}
	if store.info.Source != "sheets" {
		t.Errorf("unexpected source %q", store.info.Source)
	}
}

func TestImportService_Close(t *testing.T) {
	t.Run("nil components", func(t *testing.T) {
		svc := &ImportService{}
		if err := svc.Close(); err != nil {
			t.Fatalf("Close should not return error with nil components: %v", err)
		}
	})

	t.Run("closes both and reports errors", func(t *testing.T) {
		store := &fakeStore{closeErr: errors.New("locked")}
		pub := &fakePublisher{}
		svc := NewImportService(store, pub, nil)
		err := svc.Close()
		if err == nil || !strings.Contains(err.Error(), "storage: locked") {
			t.Fatalf("unexpected error %v", err)
		}
		if !store.closed || !pub.closed {
			t.Error("expected both components closed")
		}
	})
}
