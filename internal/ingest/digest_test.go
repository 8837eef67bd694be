package ingest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/blackwell-systems/shelfkeep/internal/util"
)

func TestCopyDigest(t *testing.T) {
	var buf bytes.Buffer
	d, err := copyDigest(&buf, strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if d.Size != 0 || d.SHA256 != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("empty digest = %+v", d)
	}

	payload := strings.Repeat("abcdefgh", 10000)
	buf.Reset()
	d, err = copyDigest(&buf, strings.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	if buf.String() != payload {
		t.Error("copied bytes differ from source")
	}
	if d.Size != int64(len(payload)) {
		t.Errorf("size = %d, want %d", d.Size, len(payload))
	}
	want, _ := util.SHA256Reader(strings.NewReader(payload))
	if d.SHA256 != want {
		t.Errorf("sha256 = %s, want %s", d.SHA256, want)
	}
}
