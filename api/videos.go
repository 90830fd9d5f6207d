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
	"strconv"

	"github.com/gin-gonic/gin"

	model2 "github.com/vidforge/vidforge/api/model"
	"github.com/vidforge/vidforge/api/middleware"
	"github.com/vidforge/vidforge/internal/apierror"
)

// CreateVideo submits a generation request. The task is accepted, not
// completed: the response is 202 with the processing task, and the terminal
// outcome arrives later through callbacks or polling.
func (a Api) CreateVideo(c *gin.Context) {
	var newVideo model2.CreateVideo
	if err := c.ShouldBindJSON(&newVideo); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := newVideo.ValidateCreateVideo(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	accountID := c.GetHeader(middleware.AccountHeader)
	task, err := a.vidforge.SubmitGeneration(c.Request.Context(), accountID, newVideo.ToGenerationParams())
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, task)
}

// GetVideo returns the stored task record without contacting the provider.
func (a Api) GetVideo(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /videos/:id"})
		return
	}

	task, err := a.vidforge.GetTask(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	if task.AccountID != c.GetHeader(middleware.AccountHeader) {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	c.JSON(http.StatusOK, task)
}

// GetVideoStatus returns the reconciled status of a task, polling the
// provider when the task is still in flight.
func (a Api) GetVideoStatus(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /videos/:id/status"})
		return
	}

	task, err := a.vidforge.GetTask(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	if task.AccountID != c.GetHeader(middleware.AccountHeader) {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	view, err := a.vidforge.TaskStatus(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetAllVideos lists the account's tasks newest first.
func (a Api) GetAllVideos(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	tasks, err := a.vidforge.ListTasks(c.Request.Context(), c.GetHeader(middleware.AccountHeader), limit, offset)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, tasks)
}
