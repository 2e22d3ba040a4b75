package classify

// baseScores is the impact table. Creation and deletion of an environment
// always outrank modification within the same family.
var baseScores = map[ChangeType]int{
	EnvironmentCreated:        3,
	EnvironmentDeleted:        3,
	DependencyFileModified:    2,
	EnvironmentBinaryModified: 1,
	FileCreated:               0,
	FileDeleted:               0,
	FileModified:              0,
	Unknown:                   0,
}

// Score computes the impact score for a classified change: the base score
// for its type, plus one when the path sits inside a recognized
// environment-manager namespace.
func Score(t ChangeType, path string) int {
	s := baseScores[t]
	if InManagerNamespace(path) {
		s++
	}
	return s
}
