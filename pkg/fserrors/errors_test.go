package fserrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"not found", NotFound("/a/b"), "resource '/a/b' not found"},
		{"file expected", FileExpected("/dir"), "path '/dir' should be a file"},
		{"dir expected", DirectoryExpected("/f.txt"), "path '/f.txt' should be a directory"},
		{"remove root", RemoveRoot(), "root directory may not be removed"},
		{"closed", Closed(), "attempt to use a closed filesystem"},
		{"unsupported", Unsupported("rename"), "not supported: 'rename'"},
		{"back reference", IllegalBackReference("/.."), "path '/..' contains back-references outside of filesystem"},
		{"missing namespace", MissingNamespace("details"), "namespace 'details' is not in info"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("open: %w", NotFound("/missing"))
	assert.True(t, errors.Is(err, NotFound("")))
	assert.False(t, errors.Is(err, FileExpected("/missing")))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsReadOnly(err))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := RemoteConnection("getinfo", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRetryable(t *testing.T) {
	assert.True(t, IsRetryable(RemoteConnection("list", nil)))
	assert.True(t, IsRetryable(Timeout("list", nil)))
	assert.False(t, IsRetryable(NotFound("/x")))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestCategories(t *testing.T) {
	assert.Equal(t, CategoryResource, NotFound("/x").Category())
	assert.Equal(t, CategoryPath, IllegalBackReference("..").Category())
	assert.Equal(t, CategoryState, Closed().Category())
	assert.Equal(t, CategoryOperation, Unsupported("move").Category())
	assert.Equal(t, CategoryCreate, ParseError("bad url").Category())
}

func TestReplacePath(t *testing.T) {
	inner := NotFound("/sub/file.txt")
	outer := ReplacePath(inner, "/file.txt")
	assert.Equal(t, "resource '/file.txt' not found", outer.Error())
	assert.True(t, IsNotFound(outer))

	// errors without a resource path pass through untouched
	closed := Closed()
	assert.Equal(t, error(closed), ReplacePath(closed, "/other"))
	plain := errors.New("plain")
	assert.Equal(t, plain, ReplacePath(plain, "/other"))
}
