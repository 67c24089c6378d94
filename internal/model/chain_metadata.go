package model

// ChainMetadata describes the deployment the dashboard runs against. It is
// fetched from the task service once per session and cached.
type ChainMetadata struct {
	RPCURL         string `json:"rpc_url"`
	ManagerAddress string `json:"manager_address"`
	ConfigName     string `json:"config_name"`
	Network        string `json:"blockchain_network"`
}
