package export

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/datamerge/internal/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeConverter writes the configured artifacts, then reports out.
type fakeConverter struct {
	fs     afero.Fs
	files  map[string]string
	out    Output
	err    error
	called int
	req    Request
}

func (f *fakeConverter) Convert(_ context.Context, req Request) (Output, error) {
	f.called++
	f.req = req
	if f.err != nil {
		return Output{}, f.err
	}
	for path, content := range f.files {
		if err := afero.WriteFile(f.fs, path, []byte(content), 0o644); err != nil {
			return Output{}, err
		}
	}
	return f.out, nil
}

func TestOutputSelect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		out    Output
		want   string
		wantOK bool
	}{
		{"single", Single("/runs/best.onnx"), "/runs/best.onnx", true},
		{"multiple prefers mlmodel", Multiple("/runs/best.onnx", "/runs/best.mlmodel"), "/runs/best.mlmodel", true},
		{"multiple prefers mlpackage", Multiple("/runs/a.torchscript", "/runs/best.mlpackage", "/runs/best.mlmodel"), "/runs/best.mlpackage", true},
		{"multiple falls back to first", Multiple("/runs/a.onnx", "/runs/b.onnx"), "/runs/a.onnx", true},
		{"extension match is exact", Multiple("/runs/a.onnx", "/runs/b.MLMODEL"), "/runs/a.onnx", true},
		{"empty", Multiple(), "", false},
		{"zero value", Output{}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := tt.out.Select()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.False(t, Single("x").IsMultiple())
	assert.True(t, Multiple("x").IsMultiple())
}

func TestNextFreePath(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()

	got, err := NextFreePath(fs, "/work/coreml.mlmodel")
	require.NoError(t, err)
	assert.Equal(t, "/work/coreml.mlmodel", got)

	require.NoError(t, afero.WriteFile(fs, "/work/coreml.mlmodel", nil, 0o644))
	require.NoError(t, fs.MkdirAll("/work/coreml_1.mlmodel", 0o755))
	got, err = NextFreePath(fs, "/work/coreml.mlmodel")
	require.NoError(t, err)
	assert.Equal(t, "/work/coreml_2.mlmodel", got)

	got, err = NextFreePath(fs, "/work/noext")
	require.NoError(t, err)
	assert.Equal(t, "/work/noext", got)
}

func TestFinalizeFile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/runs/best.mlmodel", []byte("v2"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/work/coreml.mlmodel", []byte("v1"), 0o644))

	target, err := Finalize(fs, "/runs/best.mlmodel", "/work", "coreml")
	require.NoError(t, err)
	assert.Equal(t, "/work/coreml_1.mlmodel", target)

	old, err := afero.ReadFile(fs, "/work/coreml.mlmodel")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(old), "existing export must not be overwritten")
	got, err := afero.ReadFile(fs, target)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))
}

func TestFinalizePackageDirectory(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/runs/best.mlpackage/Manifest.json", []byte("{}"), 0o644))

	target, err := Finalize(fs, "/runs/best.mlpackage", "/work", "cards")
	require.NoError(t, err)
	assert.Equal(t, "/work/cards.mlpackage", target)

	ok, err := afero.Exists(fs, "/work/cards.mlpackage/Manifest.json")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFinalizeMissingOutput(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	_, err := Finalize(fs, "/runs/best.mlpackage", "/work", "coreml")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutputMissing)
	assert.NotErrorIs(t, err, ErrDestinationConflict)
}

func TestPlaceConflicts(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/runs/best.mlpackage/Manifest.json", []byte("{}"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/runs/best.mlmodel", []byte("m"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/work/taken.mlpackage", []byte("file"), 0o644))
	require.NoError(t, fs.MkdirAll("/work/dir.mlmodel", 0o755))

	err := Place(fs, "/runs/best.mlpackage", "/work/taken.mlpackage")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDestinationConflict)
	assert.True(t, errors.IsCategory(err, errors.CategoryConflict))

	err = Place(fs, "/runs/best.mlmodel", "/work/dir.mlmodel")
	assert.ErrorIs(t, err, ErrDestinationConflict)

	// Same path is a no-op.
	assert.NoError(t, Place(fs, "/runs/best.mlmodel", "/runs/../runs/best.mlmodel"))
}

func TestRun(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/runs/best.pt", []byte("weights"), 0o644))
	conv := &fakeConverter{
		fs:    fs,
		files: map[string]string{"/runs/best.mlmodel": "model"},
		out:   Multiple("/runs/best.onnx", "/runs/best.mlmodel"),
	}
	rec := &fakeRecorder{}

	res, err := Run(t.Context(), fs, conv, Options{
		Request:  Request{Weights: "/runs/best.pt", ImgSize: 640, NMS: true},
		WorkDir:  "/work",
		Recorder: rec,
	})
	require.NoError(t, err)
	assert.Equal(t, "/work/coreml.mlmodel", res.Path)
	assert.Equal(t, "/runs/best.mlmodel", res.Produced)
	assert.Equal(t, Request{Weights: "/runs/best.pt", ImgSize: 640, NMS: true}, conv.req)
	assert.Equal(t, []string{"convert/success", "finalize/success", "export/success"}, rec.ops)
	assert.Empty(t, rec.errs)
}

func TestRunFailures(t *testing.T) {
	t.Parallel()

	t.Run("weights missing", func(t *testing.T) {
		t.Parallel()
		fs := afero.NewMemMapFs()
		conv := &fakeConverter{fs: fs}
		rec := &fakeRecorder{}
		_, err := Run(t.Context(), fs, conv, Options{Request: Request{Weights: "/nope.pt"}, Recorder: rec})
		assert.ErrorIs(t, err, ErrWeightsMissing)
		assert.Zero(t, conv.called)
		assert.Equal(t, []string{"export/not-found"}, rec.errs)
	})

	t.Run("converter reports nothing usable", func(t *testing.T) {
		t.Parallel()
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/best.pt", nil, 0o644))
		conv := &fakeConverter{fs: fs, out: Single("/best.mlpackage")}
		_, err := Run(t.Context(), fs, conv, Options{Request: Request{Weights: "/best.pt"}, WorkDir: "/work"})
		assert.ErrorIs(t, err, ErrOutputMissing)
	})

	t.Run("empty output", func(t *testing.T) {
		t.Parallel()
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/best.pt", nil, 0o644))
		conv := &fakeConverter{fs: fs, out: Multiple()}
		_, err := Run(t.Context(), fs, conv, Options{Request: Request{Weights: "/best.pt"}})
		assert.ErrorIs(t, err, ErrOutputMissing)
	})

	t.Run("converter error", func(t *testing.T) {
		t.Parallel()
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/best.pt", nil, 0o644))
		boom := errors.Newf("yolo exploded").Category(errors.CategoryExport).Build()
		conv := &fakeConverter{fs: fs, err: boom}
		rec := &fakeRecorder{}
		_, err := Run(t.Context(), fs, conv, Options{Request: Request{Weights: "/best.pt"}, Recorder: rec})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, []string{"convert/error", "export/error"}, rec.ops)
	})
}

func TestCommandConverterArgs(t *testing.T) {
	t.Parallel()

	c := &CommandConverter{}
	assert.Equal(t, []string{
		"export", "model=runs/best.pt", "format=coreml", "imgsz=320",
		"nms=False", "half=True", "dynamic=False", "int8=False", "optimize=False",
	}, c.Args(Request{Weights: "runs/best.pt", ImgSize: 320, Half: true}))
}

func TestCommandConverterCollect(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	c := &CommandConverter{Fs: fs}

	out := c.collect("/runs/best.pt")
	assert.False(t, out.IsMultiple())
	assert.Equal(t, []string{"/runs/best.mlpackage"}, out.Paths())

	require.NoError(t, afero.WriteFile(fs, "/runs/best.mlmodel", nil, 0o644))
	out = c.collect("/runs/best.pt")
	assert.Equal(t, []string{"/runs/best.mlmodel"}, out.Paths())

	require.NoError(t, fs.MkdirAll("/runs/best.mlpackage", 0o755))
	out = c.collect("/runs/best.pt")
	assert.True(t, out.IsMultiple())
	got, _ := out.Select()
	assert.Equal(t, "/runs/best.mlpackage", got)
}

type fakeRecorder struct {
	ops  []string
	errs []string
}

func (f *fakeRecorder) RecordOperation(op, status string) { f.ops = append(f.ops, op+"/"+status) }
func (f *fakeRecorder) RecordDuration(string, float64)    {}
func (f *fakeRecorder) RecordError(op, errType string)    { f.errs = append(f.errs, op+"/"+errType) }
