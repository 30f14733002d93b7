package irc

import "testing"

func TestFindURLs(t *testing.T) {
	t.Parallel()

	msg := "nyaa is now at https://nyaa.si, https://nyaa.si? https://nyaa.si."
	urls := FindURLs(msg)

	if len(urls) != 3 {
		t.Fatalf("Expected 3 urls, got %d: %v", len(urls), urls)
	}
	for _, u := range urls {
		if u != "https://nyaa.si" {
			t.Errorf("Expected %q, got %q", "https://nyaa.si", u)
		}
	}
}

func TestFindURLs_None(t *testing.T) {
	t.Parallel()

	if urls := FindURLs("just some text"); urls != nil {
		t.Error("Expected no urls to be found, got:", urls)
	}
}
