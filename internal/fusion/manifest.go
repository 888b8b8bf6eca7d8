package fusion

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/akbstat/fusion/internal/model"
)

// manifestFile, manifestTask mirror the on-disk JSON shape of a fusion
// run: the normalized output of the out-of-scope spreadsheet reader and
// config-repository manifest store, kept separate from the
// FusionParam/FusionTask types themselves so the wire format can carry
// json tags without polluting the core model.
type manifestFile struct {
	Filename string `json:"filename"`
	Title    string `json:"title"`
	Path     string `json:"path"`
}

type manifestTask struct {
	Name        string          `json:"name"`
	Language    string          `json:"language"`
	Cover       string          `json:"cover,omitempty"`
	Destination string          `json:"destination"`
	Mode        string          `json:"mode"`
	Files       []manifestFile  `json:"files"`
	TocHeaders  [4]string       `json:"toc_headers"`
}

type manifestParam struct {
	ID          string         `json:"id,omitempty"`
	Source      string         `json:"source"`
	Destination string         `json:"destination"`
	Tasks       []manifestTask `json:"tasks"`
}

// LoadManifest reads a JSON manifest (the frozen form of what the
// spreadsheet reader and config-repository persistence produce upstream)
// from path and normalizes it into a FusionParam via Fix.
func LoadManifest(path string) (*FusionParam, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fusion: read manifest: %w", err)
	}

	var mp manifestParam
	if err := json.Unmarshal(raw, &mp); err != nil {
		return nil, fmt.Errorf("fusion: parse manifest: %w", err)
	}

	param := &FusionParam{
		ID:          mp.ID,
		Source:      mp.Source,
		Destination: mp.Destination,
		Tasks:       make([]FusionTask, 0, len(mp.Tasks)),
	}

	for _, t := range mp.Tasks {
		lang := model.LanguageEN
		if t.Language == string(model.LanguageCN) {
			lang = model.LanguageCN
		}
		mode := model.ModePDF
		if t.Mode == string(model.ModeRTF) {
			mode = model.ModeRTF
		}

		files := make([]model.FileEntry, 0, len(t.Files))
		for _, f := range t.Files {
			files = append(files, model.FileEntry{
				Filename: f.Filename,
				Title:    f.Title,
				Path:     f.Path,
			})
		}

		param.Tasks = append(param.Tasks, FusionTask{
			Name:        t.Name,
			Language:    lang,
			Cover:       t.Cover,
			Destination: t.Destination,
			Mode:        mode,
			Files:       files,
			TocHeaders:  model.TocHeaders(t.TocHeaders),
		})
	}

	if err := param.Fix(); err != nil {
		return nil, fmt.Errorf("fusion: fix manifest: %w", err)
	}
	return param, nil
}
