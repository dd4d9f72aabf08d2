package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/twetter99/afluencia360/ingest"
	"github.com/twetter99/afluencia360/schema"
	"github.com/twetter99/afluencia360/store"
)

type stopRequest struct {
	StopCode     string    `json:"stopCode"`
	Code         string    `json:"code"`
	Name         *string   `json:"name"`
	Location     *string   `json:"location"`
	Zone         *string   `json:"zone"`
	Municipality *string   `json:"municipality"`
	Photos       []string  `json:"photos"`
	Notes        *string   `json:"notes"`
	InstalledAt  *string   `json:"installedAt"`
	Status       *string   `json:"status"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
}

func (s *Server) listStops(c *gin.Context) {
	overviews, err := s.stopOverviews()
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": overviews})
}

func (s *Server) getStop(c *gin.Context) {
	code := ingest.ResolveStopCode(c.Param("stopCode"), "")
	stop, err := s.store.GetStop(code)
	if errors.Is(err, store.ErrStopNotFound) {
		abortWithEncoding(c, http.StatusNotFound, errorStopNotFound)
		return
	}
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": stop})
}

func (s *Server) createStop(c *gin.Context) {
	var req stopRequest
	if err := c.BindJSON(&req); err != nil {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters, err)
		return
	}

	rawCode := req.StopCode
	if rawCode == "" {
		rawCode = req.Code
	}
	name := ""
	if req.Name != nil {
		name = *req.Name
	}

	code := ingest.ResolveStopCode(rawCode, name)
	if code == ingest.FallbackStopCode {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters,
			errors.New("el código de marquesina es obligatorio"))
		return
	}
	if strings.TrimSpace(name) == "" {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters,
			errors.New("el nombre de la marquesina es obligatorio"))
		return
	}

	stop := schema.Stop{
		StopCode: code,
		Name:     name,
		Photos:   req.Photos,
	}
	if req.Location != nil {
		stop.Location = *req.Location
	}
	if req.Zone != nil {
		stop.Zone = *req.Zone
	}
	if req.Municipality != nil {
		stop.Municipality = *req.Municipality
	}
	if req.Notes != nil {
		stop.Notes = *req.Notes
	}
	if req.InstalledAt != nil {
		stop.InstalledAt = *req.InstalledAt
	}
	if req.Status != nil {
		stop.Status = schema.StopStatus(*req.Status)
	}
	stop.Latitude = req.Latitude
	stop.Longitude = req.Longitude
	s.geocodeStop(&stop)

	if err := s.store.CreateStop(stop); err != nil {
		if errors.Is(err, store.ErrStopExists) {
			abortWithEncoding(c, http.StatusBadRequest, errorStopExists)
			return
		}
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}

	created, err := s.store.GetStop(code)
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    created,
		"message": "Marquesina creada correctamente",
	})
}

// updateStop merges the provided fields onto the stored stop. Absent fields
// are left untouched.
func (s *Server) updateStop(c *gin.Context) {
	code := ingest.ResolveStopCode(c.Param("stopCode"), "")

	var req stopRequest
	if err := c.BindJSON(&req); err != nil {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters, err)
		return
	}

	stop, err := s.store.GetStop(code)
	if errors.Is(err, store.ErrStopNotFound) {
		abortWithEncoding(c, http.StatusNotFound, errorStopNotFound)
		return
	}
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}

	if req.Name != nil {
		stop.Name = *req.Name
	}
	if req.Location != nil {
		stop.Location = *req.Location
	}
	if req.Zone != nil {
		stop.Zone = *req.Zone
	}
	if req.Municipality != nil {
		stop.Municipality = *req.Municipality
	}
	if req.Photos != nil {
		stop.Photos = req.Photos
	}
	if req.Notes != nil {
		stop.Notes = *req.Notes
	}
	if req.InstalledAt != nil {
		stop.InstalledAt = *req.InstalledAt
	}
	if req.Status != nil {
		stop.Status = schema.StopStatus(*req.Status)
	}
	if req.Latitude != nil {
		stop.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		stop.Longitude = req.Longitude
	}
	s.geocodeStop(stop)

	updated, err := s.store.UpdateStop(*stop)
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    updated,
		"message": "Marquesina actualizada correctamente",
	})
}

// geocodeStop fills in missing coordinates from the stop address. Lookup
// failures are logged and ignored, the catalog entry is saved either way.
func (s *Server) geocodeStop(stop *schema.Stop) {
	if s.geocoder == nil || stop.Latitude != nil || stop.Longitude != nil {
		return
	}
	address := strings.TrimSpace(stop.Location)
	if address == "" {
		return
	}

	lat, lon, err := s.geocoder.LookupCoordinate(address)
	if err != nil {
		log.WithField("prefix", "api").WithField("stop_code", stop.StopCode).
			WithError(err).Warn("geocode stop address")
		return
	}
	stop.Latitude = &lat
	stop.Longitude = &lon
}

func (s *Server) deactivateStop(c *gin.Context) {
	code := ingest.ResolveStopCode(c.Param("stopCode"), "")
	err := s.store.DeactivateStop(code)
	if errors.Is(err, store.ErrStopNotFound) {
		abortWithEncoding(c, http.StatusNotFound, errorStopNotFound)
		return
	}
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Marquesina desactivada correctamente",
	})
}

// purgeStop removes the stop and everything keyed on it: canonical records
// and sensor days.
func (s *Server) purgeStop(c *gin.Context) {
	code := ingest.ResolveStopCode(c.Param("stopCode"), "")

	if _, err := s.store.GetStop(code); err != nil {
		if errors.Is(err, store.ErrStopNotFound) {
			abortWithEncoding(c, http.StatusNotFound, errorStopNotFound)
			return
		}
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}

	records, err := s.store.DeleteRecordsByStop(code)
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	sensorDays, err := s.store.DeleteIoTDaysByStop(code)
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	if err := s.store.DeleteStop(code); err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Marquesina y todos sus datos eliminados permanentemente",
		"deleted": gin.H{
			"records":    records,
			"sensorDays": sensorDays,
		},
	})
}
