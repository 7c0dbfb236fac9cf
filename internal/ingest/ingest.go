// Package ingest turns candidate task records of unknown provenance into
// tasks ready to be appended to the task list.
//
// Extraction output, task files and manual entries all pass through the
// same Adapter. Fields are copied unchanged; escaping happens only when the
// script is compiled.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/fentz26/devlaunch/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/kaptinlin/jsonrepair"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNoUsableText is returned when the extraction produced no text.
	ErrNoUsableText = errors.New("extraction returned no usable text")
	// ErrMalformedResponse is returned when the text is not a JSON list of records.
	ErrMalformedResponse = errors.New("malformed extraction response")
)

// Default placeholder values for a manually created task.
const (
	DefaultName    = "New Task"
	DefaultPath    = `C:\Projects`
	DefaultCommand = "echo Hello World"
)

// Default returns the placeholder candidate used for manual creation.
func Default() models.Candidate {
	return models.NewCandidate(DefaultName, DefaultPath, DefaultCommand)
}

// ParseCandidates splits extraction text into raw records. The text must be a
// JSON array, or an object with a "tasks" array. Malformed JSON gets one
// repair attempt before being rejected.
func ParseCandidates(text string) ([]json.RawMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoUsableText
	}

	records, err := decodeRecords(text)
	if err == nil {
		return records, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(text)
	if repairErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	records, err = decodeRecords(repaired)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	log.Debug().Msg("extraction response required json repair")
	return records, nil
}

func decodeRecords(text string) ([]json.RawMessage, error) {
	var records []json.RawMessage
	arrErr := json.Unmarshal([]byte(text), &records)
	if arrErr == nil {
		return records, nil
	}

	var wrapped struct {
		Tasks []json.RawMessage `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(text), &wrapped); err == nil && wrapped.Tasks != nil {
		return wrapped.Tasks, nil
	}
	return nil, arrErr
}

// Adapter validates candidates and assigns them identity.
type Adapter struct {
	ids      *IDSource
	validate *validator.Validate
}

// NewAdapter creates an Adapter with a fresh IDSource.
func NewAdapter() *Adapter {
	return NewAdapterWithIDs(NewIDSource(nil))
}

// NewAdapterWithIDs creates an Adapter that draws ids from ids.
func NewAdapterWithIDs(ids *IDSource) *Adapter {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Adapter{ids: ids, validate: v}
}

// Normalize decodes and validates each raw record independently. Records that
// are not objects, carry non-string fields or lack a field are rejected
// without affecting the rest of the batch. exists reports ids already in use;
// it may be nil.
func (a *Adapter) Normalize(raw []json.RawMessage, exists func(string) bool) ([]models.Task, []models.Rejection) {
	var (
		tasks      []models.Task
		rejections []models.Rejection
	)
	for i, r := range raw {
		var c models.Candidate
		if err := json.Unmarshal(r, &c); err != nil {
			rejections = append(rejections, a.reject(i, describeDecodeError(err)))
			continue
		}
		task, err := a.accept(c, exists)
		if err != nil {
			rejections = append(rejections, a.reject(i, err.Error()))
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, rejections
}

// FromCandidates is Normalize for already decoded candidates.
func (a *Adapter) FromCandidates(cands []models.Candidate, exists func(string) bool) ([]models.Task, []models.Rejection) {
	var (
		tasks      []models.Task
		rejections []models.Rejection
	)
	for i, c := range cands {
		task, err := a.accept(c, exists)
		if err != nil {
			rejections = append(rejections, a.reject(i, err.Error()))
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, rejections
}

func (a *Adapter) accept(c models.Candidate, exists func(string) bool) (models.Task, error) {
	if err := a.validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			missing := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				missing = append(missing, fe.Field())
			}
			return models.Task{}, fmt.Errorf("missing %s", strings.Join(missing, ", "))
		}
		return models.Task{}, err
	}
	return models.Task{
		ID:      a.ids.Next(exists),
		Name:    *c.Name,
		Path:    *c.Path,
		Command: *c.Command,
	}, nil
}

func (a *Adapter) reject(index int, reason string) models.Rejection {
	log.Warn().Int("index", index).Str("reason", reason).Msg("rejected task candidate")
	return models.Rejection{Index: index, Reason: reason}
}

func describeDecodeError(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Field != "" {
			return fmt.Sprintf("%s is %s, not a string", typeErr.Field, typeErr.Value)
		}
		return fmt.Sprintf("record is %s, not an object", typeErr.Value)
	}
	return "invalid record: " + err.Error()
}
