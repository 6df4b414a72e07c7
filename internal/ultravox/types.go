package ultravox

// CallConfig is the payload for creating an Ultravox call.
type CallConfig struct {
	SystemPrompt         string                 `json:"systemPrompt"`
	Model                string                 `json:"model"`
	Voice                string                 `json:"voice"`
	Temperature          float64                `json:"temperature"`
	FirstSpeakerSettings map[string]interface{} `json:"firstSpeakerSettings"`
	SelectedTools        []AgentTool            `json:"selectedTools,omitempty"`
	Medium               map[string]interface{} `json:"medium"`
}

// CallResponse is what the Ultravox calls API returns.
type CallResponse struct {
	CallID  string `json:"callId"`
	JoinURL string `json:"joinUrl"`
}

// AgentTool defines a temporary tool the agent can invoke during the call.
type AgentTool struct {
	TemporaryTool TemporaryTool     `json:"temporaryTool"`
	AuthTokens    map[string]string `json:"authTokens,omitempty"`
}

type TemporaryTool struct {
	ModelToolName       string           `json:"modelToolName"`
	Description         string           `json:"description"`
	Requirements        ToolRequirements `json:"requirements"`
	AutomaticParameters []Parameter      `json:"automaticParameters,omitempty"`
	StaticParameters    []Parameter      `json:"staticParameters,omitempty"`
	DynamicParameters   []Parameter      `json:"dynamicParameters,omitempty"`
	HTTP                ToolHTTP         `json:"http"`
}

type ToolRequirements struct {
	HTTPSecurityOptions HTTPSecurityOptions `json:"httpSecurityOptions"`
}

type HTTPSecurityOptions struct {
	Options []SecurityOption `json:"options"`
}

type SecurityOption struct {
	Requirements map[string]APIKeyAuth `json:"requirements"`
}

type APIKeyAuth struct {
	HeaderAPIKey HeaderAPIKey `json:"headerApiKey"`
}

type HeaderAPIKey struct {
	Name string `json:"name"`
}

type ToolHTTP struct {
	BaseURLPattern string `json:"baseUrlPattern"`
	HTTPMethod     string `json:"httpMethod"`
}

// Parameter describes one tool parameter. Automatic parameters are filled
// by Ultravox, static ones are fixed here, dynamic ones by the model.
type Parameter struct {
	Name       string           `json:"name"`
	Location   string           `json:"location"`
	Value      interface{}      `json:"value,omitempty"`
	KnownValue string           `json:"knownValue,omitempty"`
	Schema     *ParameterSchema `json:"schema,omitempty"`
	Required   bool             `json:"required,omitempty"`
}

type ParameterSchema struct {
	Description string `json:"description"`
	Type        string `json:"type"`
}
