package sxm

// Channel is one entry of the catalog fetched from the Discovery/ChannelListing
// module. Fetched once, immutable for the process lifetime (Invariant 4).
type Channel struct {
	ChannelGUID         string `json:"channelGuid"`
	ChannelID           string `json:"channelId"`
	Name                string `json:"name"`
	SiriusChannelNumber string `json:"siriusChannelNumber"`
	IsFavorite          bool   `json:"isFavorite"`
}

// moduleListResponse is the envelope every SiriusXM REST module call returns.
type moduleListResponse struct {
	ModuleListResponse struct {
		Status   int `json:"status"`
		Messages []struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"messages"`
		ModuleList struct {
			Modules []struct {
				ModuleResponse struct {
					ContentData struct {
						ChannelListing struct {
							Channels []Channel `json:"channels"`
						} `json:"channelListing"`
					} `json:"contentData"`
					LiveChannelData struct {
						HLSAudioInfos []hlsAudioInfo `json:"hlsAudioInfos"`
					} `json:"liveChannelData"`
				} `json:"moduleResponse"`
			} `json:"modules"`
		} `json:"moduleList"`
	} `json:"ModuleListResponse"`
}

type hlsAudioInfo struct {
	Size string `json:"size"`
	URL  string `json:"url"`
}

// deviceInfo is the bit-exact device block sent on both login and resume.
type deviceInfo struct {
	OSVersion        string `json:"osVersion"`
	Platform         string `json:"platform"`
	SxmAppVersion    string `json:"sxmAppVersion"`
	Browser          string `json:"browser"`
	BrowserVersion   string `json:"browserVersion"`
	AppRegion        string `json:"appRegion"`
	DeviceModel      string `json:"deviceModel"`
	ClientDeviceID   string `json:"clientDeviceId"`
	Player           string `json:"player"`
	ClientDeviceType string `json:"clientDeviceType"`
}

func newDeviceInfo() deviceInfo {
	return deviceInfo{
		OSVersion:        "Mac",
		Platform:         "Web",
		SxmAppVersion:    "3.1802.10011.0",
		Browser:          "Safari",
		BrowserVersion:   "11.0.3",
		AppRegion:        "US",
		DeviceModel:      "K2WebClient",
		ClientDeviceID:   "null",
		Player:           "html5",
		ClientDeviceType: "web",
	}
}

// standardAuth carries the username/password pair for the login module.
type standardAuth struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// authModuleRequest is the moduleRequest shape shared by login and resume.
type authModuleRequest struct {
	ResultTemplate string        `json:"resultTemplate"`
	DeviceInfo     deviceInfo    `json:"deviceInfo"`
	StandardAuth   *standardAuth `json:"standardAuth,omitempty"`
}

type authModule struct {
	ModuleRequest authModuleRequest `json:"moduleRequest"`
}

type authBody struct {
	ModuleList struct {
		Modules []authModule `json:"modules"`
	} `json:"moduleList"`
}

func newAuthBody(req authModuleRequest) authBody {
	var b authBody
	b.ModuleList.Modules = []authModule{{ModuleRequest: req}}
	return b
}

// channelListingModuleRequest is the moduleRequest shape for the `get`
// ChannelListing call — unrelated in structure to authModuleRequest.
type channelListingModuleRequest struct {
	ConsumeRequests []any  `json:"consumeRequests"`
	ResultTemplate  string `json:"resultTemplate"`
	Alerts          []any  `json:"alerts"`
	ProfileInfos    []any  `json:"profileInfos"`
}

type channelListingModule struct {
	ModuleArea    string                      `json:"moduleArea"`
	ModuleType    string                      `json:"moduleType"`
	ModuleRequest channelListingModuleRequest `json:"moduleRequest"`
}

type channelListingBody struct {
	ModuleList struct {
		Modules []channelListingModule `json:"modules"`
	} `json:"moduleList"`
}

func newChannelListingBody() channelListingBody {
	var b channelListingBody
	b.ModuleList.Modules = []channelListingModule{{
		ModuleArea: "Discovery",
		ModuleType: "ChannelListing",
		ModuleRequest: channelListingModuleRequest{
			ConsumeRequests: []any{},
			ResultTemplate:  "responsive",
			Alerts:          []any{},
			ProfileInfos:    []any{},
		},
	}}
	return b
}

// NowPlaying is the payload handed to the telemetry sink after a successful
// now-playing lookup. Kept minimal — the full liveChannelData shape is not
// part of this proxy's job, only the headline "what's on now" snapshot.
type NowPlaying struct {
	ChannelID string `json:"channel_id"`
	GUID      string `json:"guid"`
}
