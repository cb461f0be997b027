package util

import (
	"testing"
	"unicode/utf8"
)

func TestPreview(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxRunes int
		want     string
	}{
		{"short unchanged", "fixed the node", 50, "fixed the node"},
		{"whitespace collapsed", "line one\n\n  line\ttwo ", 50, "line one line two"},
		{"word boundary", "This is a very long string that needs truncation", 20, "This is a very..."},
		{"no boundary in reach", "abcdefghijklmnopqrstuvwxyz", 10, "abcdefg..."},
		{"tiny limit", "abcdef", 2, ".."},
		{"zero limit", "abcdef", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Preview(tt.input, tt.maxRunes); got != tt.want {
				t.Fatalf("Preview(%q, %d) = %q, want %q", tt.input, tt.maxRunes, got, tt.want)
			}
		})
	}
}

func TestPreview_UTF8(t *testing.T) {
	inputs := []string{
		"查询中文数据库中的用户信息查询中文数据库中的用户信息",
		"Hello 👋 World 🌍 Testing 🎉 Emoji and more text",
		"データベース システム から ユーザー 情報 を 取得",
	}
	for _, in := range inputs {
		got := Preview(in, 15)
		if !utf8.ValidString(got) {
			t.Fatalf("invalid UTF-8 in %q", got)
		}
		if n := utf8.RuneCountInString(got); n > 15 {
			t.Fatalf("Preview(%q) has %d runes, want <= 15", in, n)
		}
	}
}
