// Package sheets keeps every collection in one tab of a Google spreadsheet.
// Each row is "path | id | data | created_at"; a collection is the ordered
// set of rows sharing a path. The backend is pull-based.
package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"financas/internal/store"
)

const (
	colPath = iota
	colID
	colData
	colCreatedAt
)

type Store struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	now           func() time.Time

	// Row numbers shift on delete; mutations are serialized in-process.
	mu      sync.Mutex
	sheetID *int64
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Pinger = (*Store)(nil)
)

// New creates a store over the named tab. Callers pass authentication
// options, usually from Credentials.ClientOptions.
func New(ctx context.Context, spreadsheetID, sheet string, opts ...goption.ClientOption) (*Store, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		sheet = "Dados"
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets store ready", "spreadsheet_id", spreadsheetID, "sheet", sheet)
	return &Store{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet, now: time.Now}, nil
}

func (s *Store) dataRange() string {
	return fmt.Sprintf("%s!A:D", s.sheet)
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.resolveSheetID(ctx)
	return err
}

func (s *Store) Create(ctx context.Context, path store.Path, data json.RawMessage) (string, error) {
	if err := path.Validate(); err != nil {
		return "", err
	}
	if !json.Valid(data) {
		return "", fmt.Errorf("create %s: invalid json", path)
	}
	id := uuid.NewString()
	row := []any{string(path), id, string(data), s.now().UTC().Format(time.RFC3339)}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.dataRange(), &gsheet.ValueRange{Values: [][]any{row}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", s.sheet, err)
	}
	return id, nil
}

func (s *Store) ReadAll(ctx context.Context, path store.Path) ([]store.Record, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.rows(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]store.Record, 0)
	for _, r := range rows {
		if r.path == string(path) {
			out = append(out, store.Record{ID: r.id, Data: r.data})
		}
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, path store.Path, id string) error {
	if err := path.Validate(); err != nil {
		return err
	}
	if id == "" {
		return store.ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteWhere(ctx, func(r row) bool { return r.path == string(path) && r.id == id }, true)
}

func (s *Store) RemoveAll(ctx context.Context, path store.Path) error {
	if err := path.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteWhere(ctx, func(r row) bool { return r.path == string(path) }, false)
}

// deleteWhere removes matching rows in a single batch, bottom-up so earlier
// indexes stay valid. Caller holds mu.
func (s *Store) deleteWhere(ctx context.Context, match func(row) bool, mustExist bool) error {
	rows, err := s.rows(ctx)
	if err != nil {
		return err
	}
	var idx []int64
	for _, r := range rows {
		if match(r) {
			idx = append(idx, r.index)
		}
	}
	if len(idx) == 0 {
		if mustExist {
			return store.ErrNotFound
		}
		return nil
	}
	sheetID, err := s.resolveSheetID(ctx)
	if err != nil {
		return err
	}
	slices.Sort(idx)
	reqs := make([]*gsheet.Request, 0, len(idx))
	for i := len(idx) - 1; i >= 0; i-- {
		reqs = append(reqs, &gsheet.Request{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:         sheetID,
					Dimension:       "ROWS",
					StartIndex:      idx[i],
					EndIndex:        idx[i] + 1,
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		})
	}
	_, err = s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{Requests: reqs}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("delete rows from %s: %w", s.sheet, err)
	}
	return nil
}

type row struct {
	index int64
	path  string
	id    string
	data  json.RawMessage
}

// rows reads the tab and drops rows that are blank, short or hold
// malformed JSON.
func (s *Store) rows(ctx context.Context) ([]row, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.dataRange()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.dataRange(), err)
	}
	out := make([]row, 0, len(resp.Values))
	for i, raw := range resp.Values {
		cols := toStrings(raw)
		if len(cols) < colCreatedAt {
			continue
		}
		data := json.RawMessage(cols[colData])
		if cols[colPath] == "" || cols[colID] == "" || !json.Valid(data) {
			continue
		}
		out = append(out, row{index: int64(i), path: cols[colPath], id: cols[colID], data: data})
	}
	return out, nil
}

// resolveSheetID looks up the numeric id of the tab once; batch updates
// address tabs by id, not title. Caller holds mu.
func (s *Store) resolveSheetID(ctx context.Context) (int64, error) {
	if s.sheetID != nil {
		return *s.sheetID, nil
	}
	ss, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == s.sheet {
			id := sh.Properties.SheetId
			s.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", s.sheet)
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
