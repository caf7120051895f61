package utils

import (
	"encoding/json"
	"fmt"
	"time"

	"casalink/config"

	"github.com/valyala/fasthttp"
)

// GeoResult is the coarse geography resolved from a network address. Both
// fields are empty when the lookup failed or the address is local.
type GeoResult struct {
	City  string `json:"city"`
	State string `json:"state"`
}

var geoClient = &fasthttp.Client{
	ReadTimeout:  3 * time.Second,
	WriteTimeout: 3 * time.Second,
}

// ResolveGeo resolves an IP to city/region. It never returns an error: any
// failure or timeout yields the empty result so intake is never blocked on
// the lookup.
func ResolveGeo(ip string) GeoResult {
	if ip == "" || ip == "127.0.0.1" || ip == "::1" {
		return GeoResult{}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("%s/%s/json/", config.AppConfig.GeoAPIBaseURL, ip))
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := geoClient.DoTimeout(req, resp, 3*time.Second); err != nil {
		return GeoResult{}
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return GeoResult{}
	}

	var payload struct {
		City   string `json:"city"`
		Region string `json:"region"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return GeoResult{}
	}
	return GeoResult{City: payload.City, State: payload.Region}
}
