package classify

import "testing"

func TestClassifyEnvironmentRoots(t *testing.T) {
	cases := []struct {
		path string
		kind RawKind
		want ChangeType
	}{
		{"/opt/conda/envs/newenv", RawCreate, EnvironmentCreated},
		{"/opt/conda/envs/oldenv", RawDelete, EnvironmentDeleted},
		{"/home/u/.pyenv/versions/3.12.1", RawCreate, EnvironmentCreated},
		{"/home/u/.pyenv/versions/3.10.2", RawDelete, EnvironmentDeleted},
		// files buried inside an environment are not the environment itself
		{"/opt/conda/envs/base/lib/python3.12/site.py", RawCreate, FileCreated},
	}
	for _, c := range cases {
		if got := Classify(c.path, c.kind); got != c.want {
			t.Errorf("Classify(%q, %s) = %s, want %s", c.path, c.kind, got, c.want)
		}
	}
}

func TestClassifyDependencyManifests(t *testing.T) {
	for _, p := range []string{
		"/work/proj/requirements.txt",
		"/work/proj/environment.yml",
		"/work/proj/pyproject.toml",
		"/work/proj/package.json",
	} {
		if got := Classify(p, RawModify); got != DependencyFileModified {
			t.Errorf("Classify(%q) = %s, want dependency_file_modified", p, got)
		}
	}
	// manifest precedence also applies to create/delete
	if got := Classify("/work/proj/poetry.lock", RawCreate); got != DependencyFileModified {
		t.Errorf("created manifest classified as %s", got)
	}
}

func TestClassifyBinaryDirs(t *testing.T) {
	if got := Classify("/opt/conda/envs/base/bin/python", RawModify); got != EnvironmentBinaryModified {
		t.Errorf("bin modify = %s", got)
	}
	// only modify maps to binary change; create falls through to generic
	if got := Classify("/opt/conda/envs/base/bin/pip", RawCreate); got != FileCreated {
		t.Errorf("bin create = %s", got)
	}
}

func TestClassifyGenericAndUnknown(t *testing.T) {
	if got := Classify("/tmp/scratch.txt", RawCreate); got != FileCreated {
		t.Errorf("create = %s", got)
	}
	if got := Classify("/tmp/scratch.txt", RawDelete); got != FileDeleted {
		t.Errorf("delete = %s", got)
	}
	if got := Classify("/tmp/scratch.txt", RawModify); got != FileModified {
		t.Errorf("modify = %s", got)
	}
	if got := Classify("/tmp/scratch.txt", RawMove); got != Unknown {
		t.Errorf("move = %s", got)
	}
}

// Classification depends only on (path, kind): repeated calls agree.
func TestClassifyDeterministic(t *testing.T) {
	paths := []string{"/opt/conda/envs/x", "/w/requirements.txt", "/e/bin/run", "/tmp/f"}
	kinds := []RawKind{RawCreate, RawDelete, RawModify, RawMove}
	for _, p := range paths {
		for _, k := range kinds {
			first := Classify(p, k)
			for i := 0; i < 3; i++ {
				if got := Classify(p, k); got != first {
					t.Fatalf("Classify(%q, %s) unstable: %s then %s", p, k, first, got)
				}
			}
		}
	}
}

func TestScoreTable(t *testing.T) {
	cases := []struct {
		t    ChangeType
		path string
		want int
	}{
		{EnvironmentCreated, "/data/envs/x", 3},
		{EnvironmentCreated, "/opt/conda/envs/x", 4}, // +1 conda namespace
		{EnvironmentDeleted, "/home/u/.pyenv/versions/3.12", 4},
		{DependencyFileModified, "/work/requirements.txt", 2},
		{DependencyFileModified, "/opt/miniconda3/envs/ml/environment.yml", 3},
		{EnvironmentBinaryModified, "/opt/conda/envs/base/bin/python", 2},
		{FileModified, "/tmp/notes.txt", 0},
		{Unknown, "/tmp/notes.txt", 0},
	}
	for _, c := range cases {
		if got := Score(c.t, c.path); got != c.want {
			t.Errorf("Score(%s, %q) = %d, want %d", c.t, c.path, got, c.want)
		}
	}
}

// Creation/deletion of an environment always outranks modification of the
// same environment family, for any path.
func TestScoreMonotonic(t *testing.T) {
	paths := []string{"/opt/conda/envs/x", "/home/u/.pyenv/versions/3.12", "/plain/dir/f"}
	for _, p := range paths {
		if Score(EnvironmentCreated, p) < Score(FileModified, p) {
			t.Errorf("create < modify for %q", p)
		}
		if Score(EnvironmentDeleted, p) < Score(EnvironmentBinaryModified, p) {
			t.Errorf("delete < binary modify for %q", p)
		}
		if Score(DependencyFileModified, p) < Score(FileModified, p) {
			t.Errorf("manifest < modify for %q", p)
		}
	}
}
