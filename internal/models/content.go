package models

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
)

type ContentKind string

const (
	ContentText ContentKind = "text"
	ContentFile ContentKind = "file"
)

type File struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// Content is what gets sealed inside an envelope: either a text or a file.
type Content struct {
	Kind ContentKind
	Text string
	File *File
}

func TextContent(text string) Content { return Content{Kind: ContentText, Text: text} }

func FileContent(f File) Content { return Content{Kind: ContentFile, File: &f} }

var ErrMalformedContent = errors.New("malformed content payload")

// EncodeContent serializes c as the envelope plaintext.
func EncodeContent(c Content) ([]byte, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeContent reverses EncodeContent. Legacy envelopes carry raw text.
func DecodeContent(data []byte, legacy bool) (Content, error) {
	if legacy {
		return TextContent(string(data)), nil
	}
	var c Content
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&c); err != nil {
		return Content{}, fmt.Errorf("%w: %v", ErrMalformedContent, err)
	}
	if err := c.validate(); err != nil {
		return Content{}, err
	}
	return c, nil
}

// Meta returns the descriptor stored beside the envelope, nil for text.
func (c Content) Meta() *FileMeta {
	if c.Kind != ContentFile || c.File == nil {
		return nil
	}
	return &FileMeta{Name: c.File.Name, MimeType: c.File.MimeType}
}

func (c Content) validate() error {
	switch c.Kind {
	case ContentText:
		if c.File != nil {
			return fmt.Errorf("%w: text content carries a file", ErrMalformedContent)
		}
	case ContentFile:
		if c.File == nil {
			return fmt.Errorf("%w: file content without file", ErrMalformedContent)
		}
		if c.Text != "" {
			return fmt.Errorf("%w: file content carries text", ErrMalformedContent)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrMalformedContent, c.Kind)
	}
	return nil
}
