package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStore_Put(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "http://localhost:8085/")
	if err != nil {
		t.Fatal(err)
	}

	up, err := s.Put(context.Background(), "report.docx", []byte("hello"))
	if err != nil {
		t.Fatal(err)
	}
	if up.PublicURL != "http://localhost:8085/files/report.docx" {
		t.Fatalf("public url: got %q", up.PublicURL)
	}

	data, err := os.ReadFile(filepath.Join(dir, "report.docx"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Fatalf("content: got %q", data)
	}
}

func TestLocalStore_StripsPathComponents(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "http://x")
	if err != nil {
		t.Fatal(err)
	}

	up, err := s.Put(context.Background(), "../../etc/evil.docx", []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	if up.RemotePath != filepath.Join(dir, "evil.docx") {
		t.Fatalf("remote path escaped: %q", up.RemotePath)
	}
	if _, err := os.Stat(filepath.Join(dir, "evil.docx")); err != nil {
		t.Fatal(err)
	}
}

func TestLocalStore_Handler(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "http://x")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put(context.Background(), "a.txt", []byte("served")); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/files/a.txt")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "served" {
		t.Fatalf("got %q", body)
	}
}

func TestHTTPStore_Put(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody []byte
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer remote.Close()

	s := NewHTTPStore(remote.URL+"/upload", "http://public.example.com")
	up, err := s.Put(context.Background(), "out.docx", []byte("bytes"))
	if err != nil {
		t.Fatal(err)
	}

	if gotMethod != http.MethodPut {
		t.Fatalf("method: %s", gotMethod)
	}
	if gotPath != "/upload/out.docx" {
		t.Fatalf("path: %s", gotPath)
	}
	if string(gotBody) != "bytes" {
		t.Fatalf("body: %q", gotBody)
	}
	if up.PublicURL != "http://public.example.com/out.docx" {
		t.Fatalf("public url: %q", up.PublicURL)
	}
}

func TestHTTPStore_PutFailure(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer remote.Close()

	s := NewHTTPStore(remote.URL, "http://public")
	if _, err := s.Put(context.Background(), "x.docx", []byte("b")); err == nil {
		t.Fatal("expected error on 500")
	}
}
