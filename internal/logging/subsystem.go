package logging

// SubSystem tags a log line with the component that emitted it, mirroring
// the subsystem-keyed logging used throughout the reader.
type SubSystem string

const (
	Reader        SubSystem = "reader"
	BlockCache    SubSystem = "block_cache"
	RangeFetch    SubSystem = "range_fetch"
	LatestHeight  SubSystem = "latest_height"
	SequencerGrpc SubSystem = "sequencer_grpc"
	RollupState   SubSystem = "rollup_state"
	Config        SubSystem = "config"
	System        SubSystem = "system"
)
