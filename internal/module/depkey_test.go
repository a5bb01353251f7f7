package module

import "testing"

func TestGitKey(t *testing.T) {
	t.Run("with target", func(t *testing.T) {
		k := GitKey("https://github.com/a/b.git", "v1.0.0")
		want := DepKey{Kind: KindGit, Detail: "https://github.com/a/b.git#v1.0.0"}
		if k != want {
			t.Errorf("GitKey() = %+v, want %+v", k, want)
		}
	})
	t.Run("without target", func(t *testing.T) {
		k := GitKey("https://github.com/a/b.git", "")
		want := DepKey{Kind: KindGit, Detail: "https://github.com/a/b.git"}
		if k != want {
			t.Errorf("GitKey() = %+v, want %+v", k, want)
		}
	})
}

func TestDepKeyStability(t *testing.T) {
	k1 := PathKey("/abs/path/dep")
	k2 := PathKey("/abs/path/dep")
	if k1 != k2 {
		t.Errorf("PathKey is not a pure function of its input: %+v != %+v", k1, k2)
	}
}

func TestDepKeyDistinctAcrossKinds(t *testing.T) {
	g := GitKey("same", "")
	p := PathKey("same")
	s := SystemKey("same")
	if g == p || g == s || p == s {
		t.Error("DepKeys of different kinds with the same detail text must compare unequal")
	}
}
