package app

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/usagelens/internal/output"
	"github.com/blackwell-systems/usagelens/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load session records from a JSON array or JSON Lines file",
	Long: `Insert already-shaped session records into the store. The file holds
either a JSON array of records or one record per line. All records are
written in one transaction: a malformed record aborts the whole import.

Values that break session invariants (negative costs, missing end times,
duplicate session IDs) are stored as given so the quality audit can
report them. Use "-" to read from stdin.

Record fields:
  sessionId (required), startedAt (required, RFC 3339), endedAt,
  durationSeconds, projectName, modelName, totalCostUsd,
  totalInputTokens, totalOutputTokens, toolsUsed, cacheHitCount,
  cacheMissCount, createdAt, metrics[], messages[]`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

// importRecord is the file shape of one session.
type importRecord struct {
	SessionID         string          `json:"sessionId"`
	ProjectName       *string         `json:"projectName"`
	StartedAt         time.Time       `json:"startedAt"`
	EndedAt           *time.Time      `json:"endedAt"`
	DurationSeconds   *float64        `json:"durationSeconds"`
	TotalCostUSD      float64         `json:"totalCostUsd"`
	TotalInputTokens  int64           `json:"totalInputTokens"`
	TotalOutputTokens int64           `json:"totalOutputTokens"`
	ModelName         *string         `json:"modelName"`
	ToolsUsed         []string        `json:"toolsUsed"`
	CacheHitCount     int64           `json:"cacheHitCount"`
	CacheMissCount    int64           `json:"cacheMissCount"`
	CreatedAt         *time.Time      `json:"createdAt"`
	Metrics           []importMetrics `json:"metrics"`
	Messages          []importMessage `json:"messages"`
}

type importMetrics struct {
	DateBucket   string `json:"dateBucket"`
	MessageCount int64  `json:"messageCount"`
	InputTokens  int64  `json:"inputTokens"`
	OutputTokens int64  `json:"outputTokens"`
}

type importMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	CreatedAt *time.Time `json:"createdAt"`
}

// importStats counts the rows one import wrote.
type importStats struct {
	Sessions int `json:"sessions"`
	Metrics  int `json:"metrics"`
	Messages int `json:"messages"`
}

func runImport(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()
		in = f
	}

	records, err := decodeRecords(in)
	if err != nil {
		return err
	}

	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	stats, err := importRecords(cmd.Context(), env.db, records)
	if err != nil {
		return err
	}
	env.log.WithField("sessions", stats.Sessions).Info("import finished")

	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), stats)
	}
	fmt.Fprintf(cmd.OutOrStdout(), " %s %d sessions, %d metrics rows, %d messages\n",
		output.StyleSuccess.Render("imported"), stats.Sessions, stats.Metrics, stats.Messages)
	return nil
}

// decodeRecords reads a JSON array or a stream of JSON objects and checks
// the fields the store requires.
func decodeRecords(r io.Reader) ([]importRecord, error) {
	br := bufio.NewReader(r)
	first, err := firstNonSpace(br)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []importRecord{}, nil
		}
		return nil, fmt.Errorf("reading records: %w", err)
	}

	dec := json.NewDecoder(br)
	var records []importRecord
	if first == '[' {
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("decoding record array: %w", err)
		}
	} else {
		for {
			var rec importRecord
			err := dec.Decode(&rec)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("decoding record %d: %w", len(records)+1, err)
			}
			records = append(records, rec)
		}
	}

	for i, rec := range records {
		if rec.SessionID == "" {
			return nil, fmt.Errorf("record %d: sessionId is required", i+1)
		}
		if rec.StartedAt.IsZero() {
			return nil, fmt.Errorf("record %d (%s): startedAt is required", i+1, rec.SessionID)
		}
	}
	if records == nil {
		records = []importRecord{}
	}
	return records, nil
}

func firstNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

// importRecords writes every record, with its metrics and messages, in one
// transaction.
func importRecords(ctx context.Context, db *store.DB, records []importRecord) (importStats, error) {
	var stats importStats
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		stats = importStats{}
		for i, rec := range records {
			s := rec.session()
			if err := store.InsertSession(ctx, tx, s); err != nil {
				return fmt.Errorf("record %d (%s): %w", i+1, rec.SessionID, err)
			}
			stats.Sessions++

			for _, m := range rec.Metrics {
				bucket := m.DateBucket
				if bucket == "" {
					bucket = s.StartedAt.UTC().Format("2006-01-02")
				}
				if _, err := store.InsertSessionMetrics(ctx, tx, &store.SessionMetrics{
					SessionRef:   s.ID,
					DateBucket:   bucket,
					MessageCount: m.MessageCount,
					InputTokens:  m.InputTokens,
					OutputTokens: m.OutputTokens,
				}); err != nil {
					return fmt.Errorf("record %d (%s) metrics: %w", i+1, rec.SessionID, err)
				}
				stats.Metrics++
			}

			for _, msg := range rec.Messages {
				created := s.StartedAt
				if msg.CreatedAt != nil {
					created = *msg.CreatedAt
				}
				if _, err := store.InsertRawMessage(ctx, tx, &store.RawMessage{
					SessionRef: s.ID,
					Role:       msg.Role,
					Content:    msg.Content,
					CreatedAt:  created,
				}); err != nil {
					return fmt.Errorf("record %d (%s) message: %w", i+1, rec.SessionID, err)
				}
				stats.Messages++
			}
		}
		return nil
	})
	if err != nil {
		return importStats{}, err
	}
	return stats, nil
}

func (rec importRecord) session() *store.Session {
	s := &store.Session{
		SessionID:         rec.SessionID,
		ProjectName:       rec.ProjectName,
		StartedAt:         rec.StartedAt.UTC(),
		DurationSeconds:   rec.DurationSeconds,
		TotalCostUSD:      rec.TotalCostUSD,
		TotalInputTokens:  rec.TotalInputTokens,
		TotalOutputTokens: rec.TotalOutputTokens,
		ModelName:         rec.ModelName,
		ToolsUsed:         rec.ToolsUsed,
		CacheHitCount:     rec.CacheHitCount,
		CacheMissCount:    rec.CacheMissCount,
	}
	if rec.EndedAt != nil {
		ended := rec.EndedAt.UTC()
		s.EndedAt = &ended
	}
	if rec.CreatedAt != nil {
		s.CreatedAt = rec.CreatedAt.UTC()
	}
	return s
}
