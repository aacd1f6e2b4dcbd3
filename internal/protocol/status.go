package protocol

import "encoding/json"

// StatusResponse is the JSON body of the Status Query response, trimmed
// to what protocol 763 needs: no favicon field, since this server has no
// per-server icon concern.
type StatusResponse struct {
	Version     StatusVersion `json:"version"`
	Players     StatusPlayers `json:"players"`
	Description string        `json:"description"`
}

// StatusVersion mirrors the wiki.vg "version" object.
type StatusVersion struct {
	Name     string `json:"name"`
	Protocol int    `json:"protocol"`
}

// StatusPlayers mirrors the wiki.vg "players" object.
type StatusPlayers struct {
	Online int           `json:"online"`
	Max    int           `json:"max"`
	Sample []interface{} `json:"sample"`
}

// MarshalStatus builds the JSON status payload for a QueryResponse.
func MarshalStatus(versionName string, protocolVersion, online, max int, motd string) (string, error) {
	resp := StatusResponse{
		Version:     StatusVersion{Name: versionName, Protocol: protocolVersion},
		Players:     StatusPlayers{Online: online, Max: max, Sample: []interface{}{}},
		Description: motd,
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
