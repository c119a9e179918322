package database

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"sentio/internal/anomaly"
	"sentio/internal/classify"
	"sentio/internal/pipeline"
	"sentio/internal/report"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func finishedSession(t *testing.T) (*report.Aggregator, *report.Report) {
	t.Helper()
	sad := classify.EmotionSad
	agg := report.NewAggregator("clip.mp4")
	agg.Record(&pipeline.FrameResult{Index: 1, FaceCount: 1, Timestamp: time.Now()})
	agg.Record(&pipeline.FrameResult{Index: 2, FaceCount: 1, Emotion: &sad, Timestamp: time.Now()})
	agg.RecordAnomaly(anomaly.Record{
		Kind: anomaly.KindNegativeEmotion, Description: "emotion sad detected",
		Frame: 2, Timestamp: time.Now(),
	})
	agg.RecordAnomaly(anomaly.Record{
		Kind: anomaly.KindMultipleFaces, Description: "5 faces detected simultaneously",
		Frame: 7, Timestamp: time.Now(),
	})
	agg.Finalize()
	return agg, agg.Structured()
}

func TestSaveAndGetSession(t *testing.T) {
	db := openTestDB(t)
	agg, rep := finishedSession(t)

	if err := db.SaveSession("session-1", agg, rep); err != nil {
		t.Fatalf("save: %v", err)
	}

	rec, err := db.GetSession("session-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec == nil {
		t.Fatal("archived session not found")
	}
	if rec.ID != "session-1" || rec.Source != "clip.mp4" {
		t.Errorf("identity = %s/%s, want session-1/clip.mp4", rec.ID, rec.Source)
	}
	if rec.TotalFrames != 2 || rec.FramesWithFace != 2 || rec.AnomalyCount != 2 {
		t.Errorf("counters = %d/%d/%d, want 2/2/2", rec.TotalFrames, rec.FramesWithFace, rec.AnomalyCount)
	}
	if rec.StartedAt.IsZero() || rec.EndedAt.IsZero() {
		t.Errorf("timestamps not stored: %v / %v", rec.StartedAt, rec.EndedAt)
	}

	// The stored report round-trips to the same structured record.
	var stored report.Report
	if err := json.Unmarshal([]byte(rec.ReportJSON), &stored); err != nil {
		t.Fatalf("stored report not valid JSON: %v", err)
	}
	if stored.FrameStats.TotalFrames != rep.FrameStats.TotalFrames ||
		stored.Anomalies.Count != rep.Anomalies.Count {
		t.Errorf("stored report = %+v, want %+v", stored, *rep)
	}
}

func TestGetSessionMissing(t *testing.T) {
	db := openTestDB(t)
	rec, err := db.GetSession("nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec != nil {
		t.Fatalf("got %+v for an unknown id, want nil", rec)
	}
}

func TestListSessions(t *testing.T) {
	db := openTestDB(t)
	agg, rep := finishedSession(t)
	for _, id := range []string{"a", "b", "c"} {
		if err := db.SaveSession(id, agg, rep); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	sessions, err := db.ListSessions(2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2 (limit applied)", len(sessions))
	}

	sessions, err = db.ListSessions(0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("got %d sessions, want 3 (default limit)", len(sessions))
	}
}

func TestListAnomaliesOrdered(t *testing.T) {
	db := openTestDB(t)
	agg, rep := finishedSession(t)
	if err := db.SaveSession("session-1", agg, rep); err != nil {
		t.Fatalf("save: %v", err)
	}

	records, err := db.ListAnomalies("session-1")
	if err != nil {
		t.Fatalf("list anomalies: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Kind != anomaly.KindNegativeEmotion || records[0].Frame != 2 {
		t.Errorf("first record = %+v, want negative_emotion at frame 2", records[0])
	}
	if records[1].Kind != anomaly.KindMultipleFaces || records[1].Frame != 7 {
		t.Errorf("second record = %+v, want multiple_faces at frame 7", records[1])
	}

	if recs, err := db.ListAnomalies("unknown"); err != nil || len(recs) != 0 {
		t.Errorf("unknown session: records=%v err=%v, want empty", recs, err)
	}
}
