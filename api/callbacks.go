/*
Copyright 2025 Vidforge Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	model2 "github.com/vidforge/vidforge/api/model"
	"github.com/vidforge/vidforge"
)

// ProviderCallback ingests a provider webhook. It always acknowledges with
// 200 once the payload parses: a non-2xx response makes the provider retry,
// and retrying a callback we cannot apply (unknown task, internal error)
// only produces duplicate deliveries the reconciler will have settled by
// then anyway.
func (a Api) ProviderCallback(c *gin.Context) {
	var payload model2.ProviderCallback
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := payload.ValidateProviderCallback(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	err := a.vidforge.HandleCallback(c.Request.Context(), vidforge.CallbackEvent{
		CorrelationID: payload.CorrelationID(),
		Status:        payload.Status,
		Progress:      payload.Progress,
		VideoURL:      payload.VideoURL,
		ThumbnailURL:  payload.ThumbnailURL,
		Error:         payload.Error,
	})
	if err != nil {
		logrus.WithField("correlation_id", payload.CorrelationID()).
			Errorf("callback processing failed: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{"acknowledged": true})
}
