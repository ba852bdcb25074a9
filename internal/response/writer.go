// Package response serializes terminal job outcomes into immutable response
// records under responses/{agent_id}/{mode}/{YYYYMMDD}/.
package response

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/exchangetower/tower/internal/jsonfile"
	"github.com/exchangetower/tower/internal/model"
)

// Writer writes one ResponseRecord per terminal job.
type Writer struct {
	baseDir string
}

// NewWriter creates a Writer rooted at baseDir (the responses/ directory).
func NewWriter(baseDir string) *Writer {
	return &Writer{baseDir: baseDir}
}

// Path returns the deterministic response location for an identity.
func (w *Writer) Path(id model.Identity) string {
	filename := fmt.Sprintf("response_%s_%s_%s_%s.json", id.Mode, id.AgentID, id.OrderType, id.Timestamp)
	return filepath.Join(w.baseDir, id.AgentID, string(id.Mode), id.DateDir(), filename)
}

// WriteSuccess records a successful outcome with the upstream data payload.
func (w *Writer) WriteSuccess(id model.Identity, data any, requestOrderID *string) (string, error) {
	rec := model.ResponseRecord{
		RequestOrderID: requestOrderID,
		AgentID:        id.AgentID,
		ClientOrderID:  id.ClientOrderID(),
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		Status:         model.ResponseSuccess,
		Data:           data,
		Error:          nil,
	}
	return w.write(id, rec)
}

// WriteError records a terminal failure. Data is always null for errors;
// status and the error field are mutually consistent by construction.
func (w *Writer) WriteError(id model.Identity, errInfo model.ErrorInfo) (string, error) {
	rec := model.ResponseRecord{
		RequestOrderID: nil,
		AgentID:        id.AgentID,
		ClientOrderID:  id.ClientOrderID(),
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		Status:         model.ResponseError,
		Data:           nil,
		Error:          &errInfo,
	}
	return w.write(id, rec)
}

func (w *Writer) write(id model.Identity, rec model.ResponseRecord) (string, error) {
	path := w.Path(id)
	// Creating an already-existing hierarchy is not an error.
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", errors.Wrap(err, "create response dir")
	}
	if err := jsonfile.AtomicWrite(path, rec); err != nil {
		return "", errors.Wrapf(err, "write response %s", filepath.Base(path))
	}
	return path, nil
}
