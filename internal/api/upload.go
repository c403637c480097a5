package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"agentconsole/internal/logging"
)

// UploadFile is one file to send to the agent workspace. Name is the path
// relative to the chosen root, with forward slashes, so directory uploads
// keep their structure.
type UploadFile struct {
	Name string
	Body io.Reader
}

type uploadReply struct {
	envelope
	UploadedFiles []string `json:"uploaded_files,omitempty"`
}

// Upload sends files to the agent workspace as multipart field "files".
func (c *Client) Upload(ctx context.Context, files []UploadFile) ([]string, error) {
	if len(files) == 0 {
		return nil, &RequestError{Op: "upload", Message: "no files selected"}
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, &RequestError{Op: "upload", Err: err}
		}
		if _, err := io.Copy(part, f.Body); err != nil {
			return nil, &RequestError{Op: "upload", Err: fmt.Errorf("failed to read %s: %w", f.Name, err)}
		}
	}
	if err := mw.Close(); err != nil {
		return nil, &RequestError{Op: "upload", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &buf)
	if err != nil {
		return nil, &RequestError{Op: "upload", Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out uploadReply
	if err := c.send(req, "upload", &out); err != nil {
		return nil, err
	}
	logging.API("uploaded %d files", len(out.UploadedFiles))
	return out.UploadedFiles, nil
}

// UploadPaths opens each path and uploads it under its name relative to root.
// Directories are walked recursively.
func (c *Client) UploadPaths(ctx context.Context, root string, paths []string) ([]string, error) {
	var files []UploadFile
	var opened []*os.File
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()

	add := func(p string) error {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		opened = append(opened, f)
		files = append(files, UploadFile{Name: filepath.ToSlash(rel), Body: f})
		return nil
	}

	for _, p := range paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, &RequestError{Op: "upload", Err: err}
		}
		if !info.IsDir() {
			if err := add(p); err != nil {
				return nil, &RequestError{Op: "upload", Err: err}
			}
			continue
		}
		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			return add(path)
		})
		if err != nil {
			return nil, &RequestError{Op: "upload", Err: err}
		}
	}

	return c.Upload(ctx, files)
}
