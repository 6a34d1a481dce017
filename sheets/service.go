package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// Value input modes and insert modes understood by the Sheets API.
const (
	userEntered = "USER_ENTERED"
	insertRows  = "INSERT_ROWS"
)

// Tab is one sheet of a spreadsheet.
type Tab struct {
	ID    int64
	Title string
}

// Service is the part of the Sheets v4 API the sink talks to.
// Ranges are in A1 notation.
type Service interface {
	Tabs(ctx context.Context, spreadsheetID string) ([]Tab, error)
	// AddTab creates a tab and returns its id. It returns ErrCreateSheet when
	// the API accepts the request but reports no new tab.
	AddTab(ctx context.Context, spreadsheetID, title string) (int64, error)
	Values(ctx context.Context, spreadsheetID, rng string) ([][]string, error)
	// Update overwrites the cells of rng. Values are parsed as if typed in by
	// a user, so dates and numbers get their natural types.
	Update(ctx context.Context, spreadsheetID, rng string, rows [][]string) error
	// Append inserts rows after the last row of the table found in rng,
	// parsing values like Update does.
	Append(ctx context.Context, spreadsheetID, rng string, rows [][]string) error
}

type googleService struct {
	api *gsheets.Service
}

// NewService dials the Google Sheets API.
func NewService(ctx context.Context, opts ...option.ClientOption) (Service, error) {
	api, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return &googleService{api}, nil
}

func (g *googleService) Tabs(ctx context.Context, spreadsheetID string) ([]Tab, error) {
	spreadsheet, err := g.api.Spreadsheets.
		Get(spreadsheetID).
		Fields("sheets.properties(sheetId,title)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	tabs := make([]Tab, 0, len(spreadsheet.Sheets))
	for _, s := range spreadsheet.Sheets {
		if s == nil || s.Properties == nil {
			continue
		}
		tabs = append(tabs, Tab{ID: s.Properties.SheetId, Title: s.Properties.Title})
	}
	return tabs, nil
}

func (g *googleService) AddTab(ctx context.Context, spreadsheetID, title string) (int64, error) {
	resp, err := g.api.Spreadsheets.
		BatchUpdate(spreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{
			Requests: []*gsheets.Request{{
				AddSheet: &gsheets.AddSheetRequest{
					Properties: &gsheets.SheetProperties{Title: title},
				},
			}},
		}).
		Context(ctx).
		Do()
	if err != nil {
		return 0, err
	}

	if len(resp.Replies) == 0 {
		return 0, ErrCreateSheet
	}
	reply := resp.Replies[0]
	if reply == nil || reply.AddSheet == nil || reply.AddSheet.Properties == nil {
		return 0, ErrCreateSheet
	}
	return reply.AddSheet.Properties.SheetId, nil
}

func (g *googleService) Values(ctx context.Context, spreadsheetID, rng string) ([][]string, error) {
	vr, err := g.api.Spreadsheets.Values.
		Get(spreadsheetID, rng).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	rows := make([][]string, len(vr.Values))
	for i, cells := range vr.Values {
		rows[i] = make([]string, len(cells))
		for j, c := range cells {
			if c != nil {
				rows[i][j] = fmt.Sprint(c)
			}
		}
	}
	return rows, nil
}

func (g *googleService) Update(ctx context.Context, spreadsheetID, rng string, rows [][]string) error {
	_, err := g.api.Spreadsheets.Values.
		Update(spreadsheetID, rng, valueRange(rows)).
		ValueInputOption(userEntered).
		Context(ctx).
		Do()
	return err
}

func (g *googleService) Append(ctx context.Context, spreadsheetID, rng string, rows [][]string) error {
	_, err := g.api.Spreadsheets.Values.
		Append(spreadsheetID, rng, valueRange(rows)).
		ValueInputOption(userEntered).
		InsertDataOption(insertRows).
		Context(ctx).
		Do()
	return err
}

func valueRange(rows [][]string) *gsheets.ValueRange {
	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = make([]any, len(row))
		for j, v := range row {
			values[i][j] = v
		}
	}
	return &gsheets.ValueRange{MajorDimension: "ROWS", Values: values}
}
