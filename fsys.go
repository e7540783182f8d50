package main

import (
	"errors"
	"io/fs"
)

// os.Root refuses paths that leave it with an unexported error, so it is
// matched by its text.
const errEscapesText = "path escapes from parent"

// rootFS turns the root's refusal to leave it into fs.ErrPermission, which the
// file server answers with 403 instead of 500.
type rootFS struct {
	fs.FS
}

func (r rootFS) Open(name string) (fs.File, error) {
	f, err := r.FS.Open(name)
	if err != nil {
		return nil, refused("open", name, err)
	}
	return f, nil
}

func (r rootFS) Stat(name string) (fs.FileInfo, error) {
	fi, err := fs.Stat(r.FS, name)
	if err != nil {
		return nil, refused("stat", name, err)
	}
	return fi, nil
}

func refused(op, name string, err error) error {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if e.Error() == errEscapesText {
			return &fs.PathError{Op: op, Path: name, Err: fs.ErrPermission}
		}
	}
	return err
}
