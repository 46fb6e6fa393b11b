// Package ingest loads course catalog data into the store, from API payloads
// or from dropped catalog files (JSON, CSV, XLSX).
package ingest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/store"
	"github.com/hyperjump/osusume/pkg/utils"
)

// ErrInvalidCourse is returned by Validate for rows missing a key or title.
var ErrInvalidCourse = errors.New("invalid course data")

// Ingestor writes validated course data into the store, skipping duplicates.
type Ingestor struct {
	store  store.CourseStore
	logger *zap.Logger
}

// NewIngestor creates an ingestor. logger may be nil.
func NewIngestor(cs store.CourseStore, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{store: cs, logger: logger}
}

// Validate checks the minimum shape of a course input: key and title present.
func Validate(input *models.CourseInput) error {
	if input == nil {
		return fmt.Errorf("%w: nil input", ErrInvalidCourse)
	}
	if strings.TrimSpace(input.Key) == "" {
		return fmt.Errorf("%w: missing key", ErrInvalidCourse)
	}
	if strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("%w: missing title for %s", ErrInvalidCourse, input.Key)
	}
	return nil
}

// IngestOne validates and stores a single course.
func (ing *Ingestor) IngestOne(ctx context.Context, input *models.CourseInput) (*models.Course, error) {
	if err := Validate(input); err != nil {
		return nil, err
	}
	input.Description = utils.NormalizeSpace(input.Description)
	return ing.store.CreateCourse(ctx, input)
}

// IngestBatch stores each valid row, skipping invalid rows and duplicate
// keys. One bad row never aborts the batch; the number of courses actually
// added is returned.
func (ing *Ingestor) IngestBatch(ctx context.Context, inputs []models.CourseInput) (int, error) {
	added := 0
	for i := range inputs {
		input := &inputs[i]
		if err := Validate(input); err != nil {
			ing.logger.Warn("skipping invalid course row", zap.Error(err))
			continue
		}
		input.Description = utils.NormalizeSpace(input.Description)
		_, err := ing.store.CreateCourse(ctx, input)
		if errors.Is(err, store.ErrDuplicateKey) {
			ing.logger.Info("course already exists, skipping", zap.String("key", input.Key))
			continue
		}
		if err != nil {
			return added, fmt.Errorf("ingest %s: %w", input.Key, err)
		}
		added++
	}
	return added, nil
}

// IngestFile loads a catalog file by extension and ingests its rows.
// Supported: .json (array of course inputs), .csv and .xlsx (header row
// naming the columns).
func (ing *Ingestor) IngestFile(ctx context.Context, path string) (int, error) {
	var (
		inputs []models.CourseInput
		err    error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		inputs, err = loadJSON(path)
	case ".csv":
		inputs, err = loadCSV(path)
	case ".xlsx":
		inputs, err = loadXLSX(path)
	default:
		return 0, fmt.Errorf("unsupported catalog format: %s", filepath.Ext(path))
	}
	if err != nil {
		return 0, err
	}
	added, err := ing.IngestBatch(ctx, inputs)
	if err != nil {
		return added, err
	}
	ing.logger.Info("catalog file ingested",
		zap.String("path", path),
		zap.Int("rows", len(inputs)),
		zap.Int("added", added))
	return added, nil
}

func loadJSON(path string) ([]models.CourseInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var inputs []models.CourseInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("parse json catalog: %w", err)
	}
	return inputs, nil
}

func loadCSV(path string) ([]models.CourseInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := columnMap(header)

	var inputs []models.CourseInput
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		inputs = append(inputs, rowToInput(cols, record))
	}
	return inputs, nil
}

func loadXLSX(path string) ([]models.CourseInput, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx catalog has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	cols := columnMap(rows[0])
	inputs := make([]models.CourseInput, 0, len(rows)-1)
	for _, row := range rows[1:] {
		inputs = append(inputs, rowToInput(cols, row))
	}
	return inputs, nil
}

// columnMap maps normalized header names to column indices.
func columnMap(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return cols
}

func rowToInput(cols map[string]int, row []string) models.CourseInput {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	return models.CourseInput{
		Key:         get("key"),
		Title:       get("title"),
		Description: get("description"),
		Instructor:  get("instructor"),
		Category:    get("category"),
		Platform:    get("platform"),
	}
}
