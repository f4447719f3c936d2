package engine

import "fmt"

// State is a step of the submission state machine.
type State int

const (
	StatePreprocessed State = iota + 1
	StateCompiling
	StateCompiledAsHeader
	StateCompiledAsLibrary
	StateLinkResolving
	StateLinking
	StateInputBridging
	StateRunning
	StateDone
	StateErrored
)

var stateNames = map[State]string{
	StatePreprocessed:      "Preprocessed",
	StateCompiling:         "Compiling",
	StateCompiledAsHeader:  "CompiledAsHeader",
	StateCompiledAsLibrary: "CompiledAsLibrary",
	StateLinkResolving:     "LinkResolving",
	StateLinking:           "Linking",
	StateInputBridging:     "InputBridging",
	StateRunning:           "Running",
	StateDone:              "Done",
	StateErrored:           "Errored",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateErrored
}

var transitions = map[State][]State{
	StatePreprocessed:      {StateCompiling, StateCompiledAsHeader, StateErrored},
	StateCompiling:         {StateCompiledAsLibrary, StateLinkResolving, StateErrored},
	StateCompiledAsHeader:  {StateDone, StateErrored},
	StateCompiledAsLibrary: {StateDone, StateErrored},
	StateLinkResolving:     {StateLinking, StateErrored},
	StateLinking:           {StateInputBridging, StateErrored},
	StateInputBridging:     {StateRunning, StateErrored},
	StateRunning:           {StateDone, StateErrored},
}

// CanTransition reports whether the machine may move from one state to another.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
