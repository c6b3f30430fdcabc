package formula

import (
	"errors"
	"reflect"
	"testing"
	"testing/fstest"

	"github.com/goplus/llar-mongocxx/mod/module"
)

func TestModuleDeps_Require(t *testing.T) {
	deps := &ModuleDeps{}

	deps.Require("mongodb/mongo-c-driver", "1.16.1")
	deps.Require("boostorg/optional", "1.69.0")

	want := []module.Version{
		{Path: "mongodb/mongo-c-driver", Version: "1.16.1"},
		{Path: "boostorg/optional", Version: "1.69.0"},
	}
	if got := deps.Deps(); !reflect.DeepEqual(got, want) {
		t.Fatalf("ModuleDeps.Deps() = %#v, want %#v", got, want)
	}
}

func TestBuildResult_ErrsAndMetadata(t *testing.T) {
	result := &BuildResult{}
	errA := errors.New("first")
	errB := errors.New("second")

	result.AddErr(errA)
	result.AddErr(errB)

	if got := result.Errs(); len(got) != 2 || got[0] != errA || got[1] != errB {
		t.Fatalf("BuildResult.Errs() = %#v, want [%v %v]", got, errA, errB)
	}

	if result.Metadata() != "" {
		t.Fatalf("BuildResult.Metadata() = %q, want empty string", result.Metadata())
	}
	result.SetMetadata("-lmongocxx -lbsoncxx")
	if result.Metadata() != "-lmongocxx -lbsoncxx" {
		t.Fatalf("BuildResult.Metadata() = %q, want %q", result.Metadata(), "-lmongocxx -lbsoncxx")
	}
}

func TestProject_ReadFile(t *testing.T) {
	proj := &Project{
		DirFS: fstest.MapFS{
			"CMakeLists.txt": {Data: []byte("project(MONGO_CXX_DRIVER LANGUAGES CXX)")},
		},
	}

	t.Run("existing file", func(t *testing.T) {
		got, err := proj.ReadFile("CMakeLists.txt")
		if err != nil {
			t.Fatalf("Project.ReadFile() error = %v", err)
		}
		if string(got) != "project(MONGO_CXX_DRIVER LANGUAGES CXX)" {
			t.Fatalf("Project.ReadFile() = %q", string(got))
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := proj.ReadFile("missing.txt"); err == nil {
			t.Fatalf("Project.ReadFile() error = nil, want error")
		}
	})

	t.Run("exists", func(t *testing.T) {
		if !proj.Exists("CMakeLists.txt") {
			t.Errorf("Project.Exists(CMakeLists.txt) = false")
		}
		if proj.Exists("missing.txt") {
			t.Errorf("Project.Exists(missing.txt) = true")
		}
	})
}
