// Package parser provides types for decoded Ethereum event logs. It is the
// boundary between raw chain data and the structured rows the indexer stores.
package parser

// DecodedLog represents a decoded Ethereum event log with its arguments and metadata.
type DecodedLog struct {
	// LogIndex is the position of the log in the block
	LogIndex uint64
	// Address is the contract address that emitted the event
	Address string
	// Arguments contains the decoded event parameters
	Arguments []Argument
	// EventName is the name of the emitted event
	EventName string
	// OutputData contains the decoded non-indexed event data as a map
	OutputData map[string]interface{}
}

// Argument represents a single parameter in a decoded event log.
type Argument struct {
	// Name is the parameter name
	Name string
	// Type is the Solidity type of the parameter
	Type string
	// Value is the actual parameter value; only set for indexed parameters
	Value interface{}
	// Indexed indicates whether this was an indexed event parameter
	Indexed bool
}
