package models

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestExpiryPolicy_Validate(t *testing.T) {
	tests := []struct {
		policy ExpiryPolicy
		ok     bool
	}{
		{TimePolicy(15), true},
		{ViewsPolicy(1), true},
		{TimePolicy(0), false},
		{ViewsPolicy(-1), false},
		{ExpiryPolicy{Kind: "forever", Value: 1}, false},
		{ExpiryPolicy{}, false},
	}
	for _, tt := range tests {
		if err := tt.policy.Validate(); (err == nil) != tt.ok {
			t.Fatalf("%+v: ok=%v err=%v", tt.policy, tt.ok, err)
		}
	}
}

func TestExpiryPolicy_Reached(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	time15 := TimePolicy(15)
	if time15.Reached(100, created, created.Add(15*time.Minute-time.Nanosecond)) {
		t.Fatalf("time policy reached early; views must not matter")
	}
	if !time15.Reached(0, created, created.Add(15*time.Minute)) {
		t.Fatalf("time policy not reached at the boundary")
	}

	views3 := ViewsPolicy(3)
	if views3.Reached(2, created, created.Add(24*time.Hour)) {
		t.Fatalf("views policy reached early; age must not matter")
	}
	if !views3.Reached(3, created, created) {
		t.Fatalf("views policy not reached at max views")
	}
}

func TestSecret_AfterView(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &Secret{Policy: ViewsPolicy(2), CreatedAt: created}

	next := s.AfterView(created)
	if next.ViewCount != 1 || next.IsExpired {
		t.Fatalf("first view: %+v", next)
	}
	s.ViewCount = next.ViewCount
	next = s.AfterView(created)
	if next.ViewCount != 2 || !next.IsExpired {
		t.Fatalf("second view: %+v", next)
	}

	s.IsExpired = true
	s.Policy = TimePolicy(60)
	if !s.Expired(created) {
		t.Fatalf("expired flag must win over the policy")
	}
}

func TestSecret_Clone(t *testing.T) {
	s := &Secret{ID: "a", File: &FileMeta{Name: "a.txt"}}
	cp := s.Clone()
	cp.File.Name = "b.txt"
	cp.ViewCount = 9
	if s.File.Name != "a.txt" || s.ViewCount != 0 {
		t.Fatalf("clone shares state with the original")
	}
}

func TestContent_RoundTrip(t *testing.T) {
	for _, c := range []Content{
		TextContent("hello"),
		TextContent(""),
		FileContent(File{Name: "id_rsa", MimeType: "application/octet-stream", Data: []byte{0, 1, 2, 0xff}}),
	} {
		raw, err := EncodeContent(c)
		if err != nil {
			t.Fatal(err)
		}
		got, err := DecodeContent(raw, false)
		if err != nil {
			t.Fatal(err)
		}
		if got.Kind != c.Kind || got.Text != c.Text {
			t.Fatalf("got %+v want %+v", got, c)
		}
		if c.File != nil && (got.File == nil || got.File.Name != c.File.Name || !bytes.Equal(got.File.Data, c.File.Data)) {
			t.Fatalf("file mismatch: %+v", got.File)
		}
	}
}

func TestContent_Legacy(t *testing.T) {
	got, err := DecodeContent([]byte("plain old text"), true)
	if err != nil || got.Kind != ContentText || got.Text != "plain old text" {
		t.Fatalf("legacy decode: %+v %v", got, err)
	}
}

func TestContent_Malformed(t *testing.T) {
	if _, err := DecodeContent([]byte("not gob"), false); !errors.Is(err, ErrMalformedContent) {
		t.Fatalf("want ErrMalformedContent, got %v", err)
	}
	if _, err := EncodeContent(Content{Kind: "video"}); !errors.Is(err, ErrMalformedContent) {
		t.Fatalf("want ErrMalformedContent, got %v", err)
	}
	if _, err := EncodeContent(Content{Kind: ContentFile}); !errors.Is(err, ErrMalformedContent) {
		t.Fatalf("want ErrMalformedContent, got %v", err)
	}
}

func TestContent_Meta(t *testing.T) {
	if TextContent("x").Meta() != nil {
		t.Fatalf("text has no file meta")
	}
	m := FileContent(File{Name: "a.pdf", MimeType: "application/pdf", Data: []byte("%PDF")}).Meta()
	if m == nil || m.Name != "a.pdf" || m.MimeType != "application/pdf" {
		t.Fatalf("meta: %+v", m)
	}
}
