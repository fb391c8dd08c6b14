package httpapi

import "testing"

func TestIsSupportedImageRecognizesKnownFormats(t *testing.T) {
	cases := map[string][]byte{
		"png":  {0x89, 'P', 'N', 'G', 0x0D, 0x0A},
		"jpeg": {0xFF, 0xD8, 0xFF, 0xE0},
		"gif":  {'G', 'I', 'F', '8', '9', 'a'},
		"webp": {'R', 'I', 'F', 'F', 0, 0, 0, 0, 'W', 'E', 'B', 'P'},
	}
	for name, data := range cases {
		if !isSupportedImage(data) {
			t.Errorf("%s: expected recognized magic bytes", name)
		}
	}
}

func TestIsSupportedImageRejectsUnknownFormat(t *testing.T) {
	if isSupportedImage([]byte("not an image")) {
		t.Fatal("expected rejection of non-image payload")
	}
}

func TestStoreAvatarBlobIsContentAddressed(t *testing.T) {
	id1, err := storeAvatarBlob([]byte("hello"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	id2, err := storeAvatarBlob([]byte("hello"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("identical payloads should hash to the same blob id: %q != %q", id1, id2)
	}
	id3, err := storeAvatarBlob([]byte("goodbye"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if id1 == id3 {
		t.Fatal("different payloads should not collide")
	}
}

func TestStoreAvatarBlobRejectsEmptyPayload(t *testing.T) {
	if _, err := storeAvatarBlob(nil); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
