package lib

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// CopyFile copies a file from src to dst. If dst does not exist, it is created.
// If it does exist, it is overwritten. Parent directories of dst are created
// on demand.
func CopyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	_, err = io.Copy(destFile, sourceFile)
	if err != nil {
		return err
	}

	// Ensure the data is written to stable storage.
	return destFile.Sync()
}

// CopyFileAtomic copies src into dst via a temp sibling and an atomic rename,
// so a partial write is never observable at dst. Used for content-addressed
// blobs, where dst is a function of content and concurrent writers converge
// on identical bytes.
func CopyFileAtomic(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".tmp*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	sourceFile, err := os.Open(src)
	if err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}

	_, copyErr := io.Copy(tmpFile, sourceFile)
	sourceFile.Close()
	if copyErr == nil {
		copyErr = tmpFile.Sync()
	}
	if closeErr := tmpFile.Close(); copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		os.Remove(tmpPath)
		return copyErr
	}

	return os.Rename(tmpPath, dst)
}

// WriteFileAtomic writes data to path via a temp sibling and an atomic rename.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	if writeErr == nil {
		writeErr = tmpFile.Sync()
	}
	if closeErr := tmpFile.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr == nil {
		writeErr = os.Chmod(tmpPath, perm)
	}
	if writeErr != nil {
		os.Remove(tmpPath)
		return writeErr
	}

	return os.Rename(tmpPath, path)
}

// MakeOwnerWritable adds the owner write bit so the file can be evicted or
// overwritten later.
func MakeOwnerWritable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.Chmod(path, info.Mode().Perm()|0200)
}

// FilesEqual compares two files byte-wise. A missing file is never equal to
// an existing one.
func FilesEqual(a, b string) (bool, error) {
	fileA, err := os.Open(a)
	if err != nil {
		return false, err
	}
	defer fileA.Close()

	fileB, err := os.Open(b)
	if err != nil {
		return false, err
	}
	defer fileB.Close()

	bufA := make([]byte, 64*1024)
	bufB := make([]byte, 64*1024)
	for {
		nA, errA := io.ReadFull(fileA, bufA)
		nB, errB := io.ReadFull(fileB, bufB)
		if nA != nB || !bytes.Equal(bufA[:nA], bufB[:nB]) {
			return false, nil
		}
		if errA == io.EOF || errA == io.ErrUnexpectedEOF {
			return errB == io.EOF || errB == io.ErrUnexpectedEOF, nil
		}
		if errA != nil {
			return false, errA
		}
		if errB != nil {
			return false, errB
		}
	}
}
