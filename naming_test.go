package flowtrace

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_tracerName(t *testing.T) {
	tests := []struct {
		obj  interface{}
		want string
	}{
		{"foo", "foo"},
		{trNamed{"bar"}, "bar"},
		{nil, ""},
		{bytes.NewBuffer(nil), "*bytes.Buffer"},
		{os.Stdin, "os.Stdin"},
		{os.Stdout, "os.Stdout"},
		{os.Stderr, "os.Stderr"},
		{io.Discard, "io.Discard"},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			assert.Equal(t, tt.want, tracerName(tt.obj))
		})
	}
}

type trNamed struct{ name string }

func (t trNamed) TracerName() string { return t.name }

func Test_fmtFrameName(t *testing.T) {
	tests := []struct {
		tracerName string
		fnName     string
		want       string
	}{
		{tracerName: "Tracer", fnName: "Func", want: "Tracer.Func"},
		{tracerName: "", fnName: "Func", want: "Func"},
		{tracerName: "Tracer", fnName: "", want: "Tracer"},
		{tracerName: "", fnName: "", want: "<unnamed_frame>"},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			assert.Equal(t, tt.want, fmtFrameName(tt.tracerName, tt.fnName))
		})
	}
}

func Test_funcName(t *testing.T) {
	var nilFn func()
	assert.Equal(t, "ToUpper", funcName(strings.ToUpper))
	assert.Equal(t, "(*Buffer).String", funcName((&bytes.Buffer{}).String))
	assert.Equal(t, "Test_funcName.func1", funcName(func() {}))
	assert.Equal(t, "", funcName(nilFn))
	assert.Equal(t, "", funcName("not a func"))
}

func Test_sanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"process_images", "process_images"},
		{"*main.Server.Handle", "main.Server.Handle"},
		{"a__b", "a_b"},
		{"my func/x", "my_func_x"},
		{"<unnamed_frame>", "unnamed_frame"},
		{"(*Buffer).String", "Buffer_.String"},
		{"bild-größe", "bild-größe"},
		{"", "unnamed"},
		{"///", "unnamed"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeFileName(tt.in))
		})
	}
}
