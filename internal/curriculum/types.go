package curriculum

// Subject is one entry in the subject catalog.
type Subject struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description,omitempty"`
	// TopicCount overrides how many topics are generated for the subject.
	TopicCount int    `yaml:"topic_count" json:"topicCount,omitempty"`
	Difficulty string `yaml:"default_difficulty" json:"defaultDifficulty,omitempty"`
}

// catalogFile is the on-disk shape. A file lists subjects under "subjects"
// or describes a single subject at the top level.
type catalogFile struct {
	Subjects []Subject `yaml:"subjects"`
	Subject  `yaml:",inline"`
}
