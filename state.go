package qalarm

/*
State is one observed outcome of a sampled program together with the
fraction of shots that produced it.
*/
type State struct {
	Value       string
	Count       int
	Probability float64
}
