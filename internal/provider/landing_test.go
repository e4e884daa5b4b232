// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindPDFLink(t *testing.T) {
	page, err := url.Parse("https://publisher.example/article/42")
	require.NoError(t, err)

	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "relative pdf href",
			html: `<a href="/about">About</a><a href="files/42.pdf">Full text</a>`,
			want: "https://publisher.example/article/files/42.pdf",
		},
		{
			name: "pdf href with query",
			html: `<a href="https://cdn.example/42.PDF?token=x">get</a>`,
			want: "https://cdn.example/42.PDF?token=x",
		},
		{
			name: "download pdf text",
			html: `<a href="/view/42">View</a><a href="/fulltext/42"><span>Download</span> PDF</a>`,
			want: "https://publisher.example/fulltext/42",
		},
		{
			name: "first match wins",
			html: `<a href="/a.pdf">a</a><a href="/b.pdf">b</a>`,
			want: "https://publisher.example/a.pdf",
		},
		{
			name: "non http scheme ignored",
			html: `<a href="mailto:x@example.org">Download PDF</a>`,
			want: "",
		},
		{
			name: "no link",
			html: `<p>Access denied</p>`,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, findPDFLink([]byte(tt.html), page))
		})
	}
}
