package utils

import (
	"archive/zip"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vuln-bulletin/types"
)

// Encoding is the wrapping of a fetched payload
type Encoding string

const (
	EncodingRaw   Encoding = "raw"
	EncodingBzip2 Encoding = "bzip2"
	EncodingGzip  Encoding = "gzip"
	EncodingXZ    Encoding = "xz"
	EncodingZstd  Encoding = "zstd"
	EncodingZip   Encoding = "zip"
)

// documentExtensions are the archive entry suffixes treated as documents
var documentExtensions = []string{".xml"}

func (e Encoding) Valid() bool {
	switch e {
	case "", EncodingRaw, EncodingBzip2, EncodingGzip, EncodingXZ, EncodingZstd, EncodingZip:
		return true
	}
	return false
}

// Unwrap returns the document bytes of a payload. Any failure is a *types.PayloadError.
func Unwrap(b []byte, enc Encoding) ([]byte, error) {
	var (
		res []byte
		err error
	)
	switch enc {
	case "", EncodingRaw:
		return b, nil
	case EncodingBzip2:
		res, err = io.ReadAll(bzip2.NewReader(bytes.NewReader(b)))
	case EncodingGzip:
		res, err = gunzip(b)
	case EncodingXZ:
		res, err = unxz(b)
	case EncodingZstd:
		res, err = unzstd(b)
	case EncodingZip:
		res, err = firstDocument(b)
	default:
		err = xerrors.Errorf("unknown encoding: %s", enc)
	}
	if err != nil {
		return nil, &types.PayloadError{Err: xerrors.Errorf("failed to unwrap %s payload: %w", enc, err)}
	}
	return res, nil
}

func gunzip(b []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func unxz(b []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

func unzstd(b []byte) ([]byte, error) {
	d, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	return d.DecodeAll(b, nil)
}

// firstDocument returns the content of the first archive entry with a document extension
func firstDocument(b []byte) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, xerrors.Errorf("failed to init zip reader: %w", err)
	}

	for _, file := range reader.File {
		if !isDocument(file.Name) {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, xerrors.Errorf("failed to open %s: %w", file.Name, err)
		}
		defer rc.Close()

		content, err := io.ReadAll(rc)
		if err != nil {
			return nil, xerrors.Errorf("failed to read %s: %w", file.Name, err)
		}
		return content, nil
	}
	return nil, types.ErrNoDocumentFound
}

func isDocument(name string) bool {
	for _, ext := range documentExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
