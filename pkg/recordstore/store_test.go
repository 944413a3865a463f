package recordstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reportforge/reportforge/pkg/finding"
	"github.com/reportforge/reportforge/pkg/report"
)

func sampleBundle() *Bundle {
	return &Bundle{
		Reports: []*report.Report{{
			ID:           "r-1",
			EngagementID: "e-1",
			Title:        "External",
			CreatedAt:    time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			Sections: []report.Section{{
				ID: "s1", Type: report.SectionFinding, Position: 1,
				Finding: &finding.ReportFinding{ID: "f1", Title: "SQLi", Severity: finding.Critical, Tags: []string{"web"}},
			}},
		}},
		Engagements: []*report.Engagement{{ID: "e-1", Name: "Q1", Customer: &report.Customer{ID: "c", Name: "Acme"}}},
	}
}

func TestOpenMissingFileIsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "nested", "records.json"))
	require.NoError(t, err)
	assert.Equal(t, Stats{}, s.Stats())
}

func TestImportPersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Import(sampleBundle()))

	reopened, err := Open(path)
	require.NoError(t, err)

	r, err := reopened.GetReport(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, "External", r.Title)
	require.Len(t, r.Sections, 1)
	assert.Equal(t, "SQLi", r.Sections[0].Finding.Title)

	e, err := reopened.GetEngagement(context.Background(), "e-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", e.CustomerName())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, errors.Is(err, os.ErrNotExist), "no temp file left behind")
}

func TestGetReturnsDeepCopies(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Import(sampleBundle()))
	ctx := context.Background()

	r, err := s.GetReport(ctx, "r-1")
	require.NoError(t, err)
	r.Title = "mutated"
	r.Sections[0].Finding.Tags[0] = "mutated"

	again, err := s.GetReport(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, "External", again.Title)
	assert.Equal(t, "web", again.Sections[0].Finding.Tags[0])
}

func TestUpdateReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Import(sampleBundle()))
	ctx := context.Background()

	updated, err := s.UpdateReport(ctx, "r-1", func(r *report.Report) error {
		r.Filename = "abc.pdf"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "abc.pdf", updated.Filename)

	reopened, err := Open(path)
	require.NoError(t, err)
	r, err := reopened.GetReport(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, "abc.pdf", r.Filename)
	assert.Equal(t, 1, reopened.Stats().Generated)

	_, err = s.UpdateReport(ctx, "r-1", func(r *report.Report) error {
		r.Filename = "discarded.pdf"
		return errors.New("abort")
	})
	require.Error(t, err)
	r, err = s.GetReport(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, "abc.pdf", r.Filename)

	_, err = s.UpdateReport(ctx, "missing", func(*report.Report) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteReport(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Import(sampleBundle()))
	ctx := context.Background()

	require.NoError(t, s.DeleteReport(ctx, "r-1"))
	_, err := s.GetReport(ctx, "r-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteReport(ctx, "r-1"), ErrNotFound)
	assert.Empty(t, s.ReportIDs())
}

func TestReportIDsSorted(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	for _, id := range []string{"r-3", "r-1", "r-2"} {
		require.NoError(t, s.PutReport(ctx, &report.Report{ID: id}))
	}
	assert.Equal(t, []string{"r-1", "r-2", "r-3"}, s.ReportIDs())
}

func TestPutValidation(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	assert.Error(t, s.PutReport(ctx, &report.Report{}))
	assert.Error(t, s.PutEngagement(ctx, nil))
	require.NoError(t, s.PutEngagement(ctx, &report.Engagement{ID: "e-2"}))
	_, err := s.GetEngagement(ctx, "e-2")
	assert.NoError(t, err)
	_, err = s.GetEngagement(ctx, "e-3")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err := Open(path)
	assert.Error(t, err)
}
