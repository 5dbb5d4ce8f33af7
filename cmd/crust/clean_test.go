package main

import (
	"path/filepath"
	"testing"
)

func TestCheckCleanDir(t *testing.T) {
	dir := t.TempDir()
	for _, tt := range []struct {
		desc        string
		buildDir    string
		manifestDir string
		wantErr     bool
	}{
		{
			desc:        "build dir inside project",
			buildDir:    filepath.Join(dir, "builddir"),
			manifestDir: dir,
			wantErr:     false,
		},

		{
			desc:        "build dir is the project dir",
			buildDir:    dir,
			manifestDir: dir,
			wantErr:     true,
		},

		{
			desc:        "filesystem root",
			buildDir:    "/",
			manifestDir: dir,
			wantErr:     true,
		},
	} {
		t.Run(tt.desc, func(t *testing.T) {
			err := checkCleanDir(tt.buildDir, tt.manifestDir)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkCleanDir(%q, %q): err = %v, wantErr %v", tt.buildDir, tt.manifestDir, err, tt.wantErr)
			}
		})
	}
}
