package clipper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const mealPlanPage = `
<html>
	<head><title>Our Week of Dinners</title><script>alert('bad');</script></head>
	<body>
		<nav>Home | Recipes | About</nav>
		<h1>Weekly plan</h1>
		<div class="ads">Buy stuff!</div>
		<p>Monday: Spaghetti bolognese with <b>garlic bread</b>.</p>
		<ul>
			<li>Ground beef</li>
			<li>Crushed   tomatoes</li>
		</ul>
		<script>more_bad_stuff()</script>
		<iframe src="https://tracker.example"></iframe>
		<footer>Copyright 2024</footer>
	</body>
</html>`

func TestClipURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mealPlanPage))
	}))
	defer ts.Close()

	c := NewClipper()
	notes, err := c.ClipURL(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if notes.Title != "Our Week of Dinners" {
		t.Errorf("Expected title 'Our Week of Dinners', got '%s'", notes.Title)
	}

	for _, bad := range []string{"alert('bad')", "more_bad_stuff", "Buy stuff!", "Copyright 2024", "Recipes | About", "tracker"} {
		if strings.Contains(notes.Text, bad) {
			t.Errorf("Expected %q to be removed, got:\n%s", bad, notes.Text)
		}
	}

	expectedLines := []string{
		"Weekly plan",
		"Monday: Spaghetti bolognese with garlic bread.",
		"- Ground beef",
		"- Crushed tomatoes",
	}
	if got := strings.Split(notes.Text, "\n"); strings.Join(got, "|") != strings.Join(expectedLines, "|") {
		t.Errorf("Unexpected lines:\nwant %q\n got %q", expectedLines, got)
	}
}

func TestClipURL_Errors(t *testing.T) {
	t.Run("InvalidScheme", func(t *testing.T) {
		if _, err := NewClipper().ClipURL(context.Background(), "ftp://example.com/plan"); err == nil {
			t.Fatal("Expected an error for an ftp URL")
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		defer ts.Close()

		_, err := NewClipper().ClipURL(context.Background(), ts.URL)
		if err == nil || !strings.Contains(err.Error(), "status 404") {
			t.Fatalf("Expected a 404 error, got %v", err)
		}
	})

	t.Run("NoText", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html><body><script>x()</script></body></html>"))
		}))
		defer ts.Close()

		if _, err := NewClipper().ClipURL(context.Background(), ts.URL); err == nil {
			t.Fatal("Expected an error for a page without text")
		}
	})
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo", 2); got != "h" {
		t.Errorf("Expected rune-safe cut 'h', got %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("Expected untouched string, got %q", got)
	}
}
