package server

type pushButtonPayload struct {
	DurationMs int `json:"duration_ms"`
}

type pastePayload struct {
	Text string `json:"text"`
}

type jigglerPayload struct {
	Mode string `json:"mode"`
}

type togglePayload struct {
	Enabled bool `json:"enabled"`
}

type wakeOnLanPayload struct {
	MAC string `json:"mac"`
}

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type healthResponse struct {
	Status          string `json:"status"`
	DeviceAvailable bool   `json:"device_available"`
}

type errorResponse struct {
	Error string `json:"error"`
}
