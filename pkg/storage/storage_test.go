package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/biogo/hts/bgzf"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewStorage(ctx, dir, "")
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	if s.IsS3() {
		t.Errorf("local path reported as S3")
	}

	if err := s.WriteFile(ctx, "nested/links.txt", []byte("a 1 2 b 3 4\n")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ok, err := s.Exists(ctx, "nested/links.txt")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
	ok, err = s.Exists(ctx, "nope.txt")
	if err != nil || ok {
		t.Errorf("Exists(missing) = %v, %v", ok, err)
	}

	data, err := s.ReadFile(ctx, "nested/links.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "a 1 2 b 3 4\n" {
		t.Errorf("ReadFile = %q", data)
	}
}

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		bucket  string
		prefix  string
		wantErr bool
	}{
		{name: "BucketOnly", uri: "s3://bucket", bucket: "bucket"},
		{name: "WithPrefix", uri: "s3://bucket/run/1/", bucket: "bucket", prefix: "run/1"},
		{name: "MissingBucket", uri: "s3:///key", wantErr: true},
		{name: "NotS3", uri: "/tmp/out", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseS3URI(tt.uri)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidS3URI) {
					t.Errorf("err = %v, want ErrInvalidS3URI", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseS3URI: %v", err)
			}
			if got.Bucket != tt.bucket || got.Prefix != tt.prefix {
				t.Errorf("got %+v, want bucket=%q prefix=%q", got, tt.bucket, tt.prefix)
			}
		})
	}
}

func TestDirAndJoin(t *testing.T) {
	tests := []struct {
		path string
		dir  string
	}{
		{"query.gbk", "."},
		{"data/query.gbk", "data"},
		{"/abs/data/query.gbk", "/abs/data"},
		{"s3://bucket/data/query.gbk", "s3://bucket/data"},
		{"s3://bucket/query.gbk", "s3://bucket"},
	}
	for _, tt := range tests {
		if got := Dir(tt.path); got != tt.dir {
			t.Errorf("Dir(%q) = %q, want %q", tt.path, got, tt.dir)
		}
	}

	if got := Join("s3://bucket/out/", "links.txt"); got != "s3://bucket/out/links.txt" {
		t.Errorf("Join(s3) = %q", got)
	}
	if got := Join("out", "links.txt"); got != filepath.Join("out", "links.txt") {
		t.Errorf("Join(local) = %q", got)
	}
}

func TestOpenDecompresses(t *testing.T) {
	const content = "LOCUS       test 10 bp    DNA\n//\n"

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	gw.Write([]byte(content))
	gw.Close()

	var zs bytes.Buffer
	zw, err := zstd.NewWriter(&zs)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	zw.Write([]byte(content))
	zw.Close()

	var bg bytes.Buffer
	bw := bgzf.NewWriter(&bg, 1)
	bw.Write([]byte(content))
	bw.Close()

	tests := []struct {
		name string
		file string
		data []byte
	}{
		{"Plain", "genome.gbk", []byte(content)},
		{"Gzip", "genome.gbk.gz", gz.Bytes()},
		{"Zstd", "genome.gbk.zst", zs.Bytes()},
		{"BGZF", "genome.gbk.bgz", bg.Bytes()},
	}

	dir := t.TempDir()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, tt.data, 0644); err != nil {
				t.Fatalf("Failed to write fixture: %v", err)
			}

			rc, err := Open(context.Background(), path, "")
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer rc.Close()

			got, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if string(got) != content {
				t.Errorf("content = %q, want %q", got, content)
			}
		})
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "absent.gbk"), "")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

func TestTrimCompressionSuffix(t *testing.T) {
	if got := TrimCompressionSuffix("a/genome.GFF3.gz"); got != "a/genome.GFF3" {
		t.Errorf("got %q", got)
	}
	if got := TrimCompressionSuffix("genome.gbk"); got != "genome.gbk" {
		t.Errorf("got %q", got)
	}
}
