// Package diff decides whether a freshly built asset set differs from the
// published one, without transferring any data.
//
// Comparison is by name and size only. An edit that keeps a file's size is
// not detected; the next size-changing build repairs the draft.
package diff

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/docdraft/internal/artifacts"
	"git.home.luguber.info/inful/docdraft/internal/logfields"
	"git.home.luguber.info/inful/docdraft/internal/storage"
)

// Classification is the outcome of a dry-run comparison.
type Classification string

const (
	Changed   Classification = "changed"
	Unchanged Classification = "unchanged"
)

// OpKind is a hypothetical transfer operation.
type OpKind string

const (
	OpUpload OpKind = "upload"
	OpDelete OpKind = "delete"
)

// Operation is one line of the dry-run log.
type Operation struct {
	Kind  OpKind
	Local string // local path, empty for deletes
	Key   string // remote key
}

func (o Operation) String() string {
	if o.Kind == OpDelete {
		return fmt.Sprintf("(dryrun) delete: %s", o.Key)
	}
	return fmt.Sprintf("(dryrun) upload: %s to %s", o.Local, o.Key)
}

// Report is the result of Detect.
type Report struct {
	Classification Classification
	Operations     []Operation
	LocalFiles     int
	RemoteObjects  int
}

// Uploads counts hypothetical uploads.
func (r *Report) Uploads() int { return r.count(OpUpload) }

// Deletes counts hypothetical deletes.
func (r *Report) Deletes() int { return r.count(OpDelete) }

func (r *Report) count(kind OpKind) int {
	n := 0
	for _, op := range r.Operations {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// WriteLog writes the hypothetical operations, one per line.
func (r *Report) WriteLog(w io.Writer) error {
	for _, op := range r.Operations {
		if _, err := fmt.Fprintln(w, op.String()); err != nil {
			return err
		}
	}
	return nil
}

// Detect compares the files below localDir with the objects below remotePrefix.
// It only lists; nothing is uploaded or deleted.
func Detect(ctx context.Context, localDir string, bucket storage.Bucket, remotePrefix string) (*Report, error) {
	if !strings.HasSuffix(remotePrefix, "/") {
		remotePrefix += "/"
	}
	local, err := artifacts.Scan(localDir)
	if err != nil {
		return nil, err
	}
	remote, err := bucket.List(ctx, remotePrefix)
	if err != nil {
		return nil, err
	}

	report := Compare(local, remote, remotePrefix)
	slog.Debug("Asset diff computed",
		logfields.Prefix(remotePrefix),
		slog.String("classification", string(report.Classification)),
		slog.Int("uploads", report.Uploads()),
		slog.Int("deletes", report.Deletes()))
	return report, nil
}

// Compare is the pure core of Detect.
func Compare(local *artifacts.Tree, remote []storage.ObjectInfo, remotePrefix string) *Report {
	report := &Report{LocalFiles: len(local.Files), RemoteObjects: len(remote)}

	remoteByRel := make(map[string]storage.ObjectInfo, len(remote))
	for _, obj := range remote {
		remoteByRel[strings.TrimPrefix(obj.Key, remotePrefix)] = obj
	}

	for _, f := range local.Files {
		obj, ok := remoteByRel[f.Rel]
		if !ok || obj.Size != f.Size {
			report.Operations = append(report.Operations, Operation{Kind: OpUpload, Local: f.Path, Key: remotePrefix + f.Rel})
		}
	}
	localIdx := local.Index()
	for _, obj := range remote {
		if _, ok := localIdx[strings.TrimPrefix(obj.Key, remotePrefix)]; !ok {
			report.Operations = append(report.Operations, Operation{Kind: OpDelete, Key: obj.Key})
		}
	}

	report.Classification = Unchanged
	if len(report.Operations) > 0 {
		report.Classification = Changed
	}
	return report
}
