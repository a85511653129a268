package presexch

// PresentationSubmission maps submitted presentations back to the input
// descriptors they satisfy.
type PresentationSubmission struct {
	ID            string                    `json:"id"`
	DefinitionID  string                    `json:"definition_id"`
	DescriptorMap []*InputDescriptorMapping `json:"descriptor_map"`
}

type InputDescriptorMapping struct {
	ID         string                  `json:"id"`
	Format     string                  `json:"format"`
	Path       string                  `json:"path"`
	PathNested *InputDescriptorMapping `json:"path_nested,omitempty"`
}
