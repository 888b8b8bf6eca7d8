// Package fusion wires the whole pipeline together: normalizing the
// manifest (FusionParam/FusionTask), deriving per-stage task lists, and
// the FusionController that owns stage ordering.
package fusion

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/akbstat/fusion/internal/model"
)

// FusionTask is one manifest-listed task: a named group of source files
// destined for a single combined deliverable.
type FusionTask struct {
	Name        string
	Language    model.Language
	Cover       string
	Destination string
	Mode        model.Mode
	Files       []model.FileEntry
	TocHeaders  model.TocHeaders
}

// FusionParam is the frozen, normalized input to one fusion run.
type FusionParam struct {
	ID          string
	Source      string
	Destination string
	Tasks       []FusionTask
}

// Fix drops a task's Cover if it no longer exists on disk, filters Files
// to paths that still exist, and re-fills each surviving file's Size from
// the filesystem. Call once after loading, before freezing the param.
func (p *FusionParam) Fix() error {
	for i := range p.Tasks {
		task := &p.Tasks[i]

		if task.Cover != "" {
			if _, err := os.Stat(task.Cover); err != nil {
				task.Cover = ""
			}
		}

		kept := task.Files[:0]
		for _, f := range task.Files {
			info, err := os.Stat(f.Path)
			if err != nil {
				continue
			}
			f.Size = uint64(info.Size())
			kept = append(kept, f)
		}
		task.Files = kept
	}
	return nil
}

// ToConvertTasks derives the Stage A work list: one ConvertTask per
// unique filename across all tasks whose mode is not RTF-only passthrough
// (RTF tasks need no PDF conversion). First occurrence of a filename
// wins; later duplicates are dropped.
func (p *FusionParam) ToConvertTasks() []model.ConvertTask {
	seen := make(map[string]bool)
	var tasks []model.ConvertTask
	for _, task := range p.Tasks {
		if task.Mode == model.ModeRTF {
			continue
		}
		for _, f := range task.Files {
			if seen[f.Filename] {
				continue
			}
			seen[f.Filename] = true
			tasks = append(tasks, model.ConvertTask{
				Source:      f.Path,
				Destination: convertedDestination(p.Destination, f.Filename),
				SourceSize:  f.Size,
				ScriptDir:   filepath.Join(p.Destination, "scripts"),
			})
		}
	}
	return tasks
}

// ToCombineParams derives the Stage B work lists: one PdfCombineParam per
// PDF-mode task, one RtfCombineParam per RTF-mode task.
func (p *FusionParam) ToCombineParams() ([]model.PdfCombineParam, []model.RtfCombineParam) {
	var pdfParams []model.PdfCombineParam
	var rtfParams []model.RtfCombineParam

	pdfIndex := 0
	for _, task := range p.Tasks {
		switch task.Mode {
		case model.ModeRTF:
			files := make([]string, 0, len(task.Files))
			for _, f := range task.Files {
				files = append(files, f.Path)
			}
			rtfParams = append(rtfParams, model.RtfCombineParam{
				Destination: task.Destination,
				Files:       files,
			})
		default:
			refs := make([]model.PdfFileRef, 0, len(task.Files))
			for i, f := range task.Files {
				refs = append(refs, model.PdfFileRef{
					ID:       uint32(i),
					Title:    f.Title,
					Filepath: convertedDestination(p.Destination, f.Filename),
				})
			}
			workspace := combineWorkspace(p.Destination, pdfIndex)
			pdfParams = append(pdfParams, model.PdfCombineParam{
				ID:          pdfIndex,
				Workspace:   workspace,
				Language:    task.Language,
				Cover:       task.Cover,
				Toc:         filepath.Join(workspace, "toc.pdf"),
				Files:       refs,
				Destination: task.Destination,
				TocHeaders:  task.TocHeaders,
			})
			pdfIndex++
		}
	}

	return pdfParams, rtfParams
}

func convertedDestination(root, filename string) string {
	ext := filepath.Ext(filename)
	base := filename[:len(filename)-len(ext)]
	return filepath.Join(root, "converted", base+".pdf")
}

func combineWorkspace(root string, id int) string {
	return filepath.Join(root, "combine", strconv.Itoa(id))
}
