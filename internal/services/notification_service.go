package services

import (
	"context"
	"fmt"

	"notify-service/internal/websocket"
)

// NotificationService is the typed producer facade over the dispatcher.
// Backend subsystems call these helpers instead of assembling payload maps
// themselves, so the event taxonomy stays in one place.
type NotificationService struct {
	dispatcher *websocket.Dispatcher
}

func NewNotificationService(dispatcher *websocket.Dispatcher) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
	}
}

// =============================================================================
// Robot notifications
// =============================================================================

func (n *NotificationService) NotifyRobotConnected(ctx context.Context, userID, robotID, robotType string) websocket.PublishResult {
	data := map[string]interface{}{"robot_id": robotID, "robot_type": robotType}
	result := n.dispatcher.Publish(ctx, websocket.MessageTypeRobotConnected, data, websocket.ToUser(userID))
	topicRes := n.dispatcher.Publish(ctx, websocket.MessageTypeRobotConnected, data, websocket.ToTopic("robots"))
	result.Delivered += topicRes.Delivered
	result.Queued += topicRes.Queued
	return result
}

func (n *NotificationService) NotifyRobotDisconnected(ctx context.Context, userID, robotID string) websocket.PublishResult {
	data := map[string]interface{}{"robot_id": robotID}
	return n.dispatcher.Publish(ctx, websocket.MessageTypeRobotDisconnected, data, websocket.ToUser(userID))
}

// NotifyRobotStateUpdate fans out to the shared robots topic and the
// per-robot topic
func (n *NotificationService) NotifyRobotStateUpdate(ctx context.Context, robotID string, state map[string]interface{}) websocket.PublishResult {
	data := map[string]interface{}{"robot_id": robotID, "state": state}
	result := n.dispatcher.Publish(ctx, websocket.MessageTypeRobotStateUpdate, data, websocket.ToTopic("robots"))
	perRobot := n.dispatcher.Publish(ctx, websocket.MessageTypeRobotStateUpdate, data, websocket.ToTopic(RobotTopic(robotID)))
	result.Delivered += perRobot.Delivered
	result.Queued += perRobot.Queued
	return result
}

func (n *NotificationService) NotifyRobotError(ctx context.Context, userID, robotID, errMessage string) websocket.PublishResult {
	data := map[string]interface{}{"robot_id": robotID, "error": errMessage}
	return n.dispatcher.Publish(ctx, websocket.MessageTypeRobotError, data, websocket.ToUser(userID))
}

// NotifyRobotEmergencyStop is broadcast to every present user
func (n *NotificationService) NotifyRobotEmergencyStop(ctx context.Context, robotID, reason string) websocket.PublishResult {
	data := map[string]interface{}{"robot_id": robotID, "reason": reason, "severity": "critical"}
	return n.dispatcher.Publish(ctx, websocket.MessageTypeRobotEmergencyStop, data, websocket.Broadcast())
}

// RobotTopic names the per-robot subscription topic
func RobotTopic(robotID string) string {
	return fmt.Sprintf("robot_%s", robotID)
}

// =============================================================================
// Training notifications
// =============================================================================

func (n *NotificationService) NotifyTrainingStarted(ctx context.Context, userID, trainingID string) websocket.PublishResult {
	data := map[string]interface{}{"training_id": trainingID}
	return n.dispatcher.Publish(ctx, websocket.MessageTypeTrainingStarted, data, websocket.ToUser(userID))
}

func (n *NotificationService) NotifyTrainingProgress(ctx context.Context, userID, trainingID string, progress float64, stage string) websocket.PublishResult {
	data := map[string]interface{}{
		"training_id": trainingID,
		"progress":    progress,
		"stage":       stage,
	}
	result := n.dispatcher.Publish(ctx, websocket.MessageTypeTrainingProgress, data, websocket.ToUser(userID))
	topicRes := n.dispatcher.Publish(ctx, websocket.MessageTypeTrainingProgress, data, websocket.ToTopic("training"))
	result.Delivered += topicRes.Delivered
	result.Queued += topicRes.Queued
	return result
}

func (n *NotificationService) NotifyTrainingCompleted(ctx context.Context, userID, trainingID string, results map[string]interface{}) websocket.PublishResult {
	data := map[string]interface{}{
		"training_id": trainingID,
		"results":     results,
	}
	if url, ok := results["download_url"]; ok {
		data["download_url"] = url
	}
	return n.dispatcher.Publish(ctx, websocket.MessageTypeTrainingCompleted, data, websocket.ToUser(userID))
}

func (n *NotificationService) NotifyTrainingFailed(ctx context.Context, userID, trainingID, reason string) websocket.PublishResult {
	data := map[string]interface{}{"training_id": trainingID, "reason": reason}
	return n.dispatcher.Publish(ctx, websocket.MessageTypeTrainingFailed, data, websocket.ToUser(userID))
}

// =============================================================================
// Pipeline notifications
// =============================================================================

func (n *NotificationService) NotifyPipelineStarted(ctx context.Context, userID, pipelineID string) websocket.PublishResult {
	data := map[string]interface{}{"pipeline_id": pipelineID}
	return n.dispatcher.Publish(ctx, websocket.MessageTypePipelineStarted, data, websocket.ToUser(userID))
}

func (n *NotificationService) NotifyPipelineStageCompleted(ctx context.Context, userID, pipelineID, stage string, results map[string]interface{}) websocket.PublishResult {
	data := map[string]interface{}{
		"pipeline_id": pipelineID,
		"stage":       stage,
		"results":     results,
	}
	result := n.dispatcher.Publish(ctx, websocket.MessageTypePipelineStageCompleted, data, websocket.ToUser(userID))
	topicRes := n.dispatcher.Publish(ctx, websocket.MessageTypePipelineStageCompleted, data, websocket.ToTopic("pipeline"))
	result.Delivered += topicRes.Delivered
	result.Queued += topicRes.Queued
	return result
}

func (n *NotificationService) NotifyPipelineCompleted(ctx context.Context, userID, pipelineID string, results map[string]interface{}) websocket.PublishResult {
	data := map[string]interface{}{"pipeline_id": pipelineID, "results": results}
	return n.dispatcher.Publish(ctx, websocket.MessageTypePipelineCompleted, data, websocket.ToUser(userID))
}

func (n *NotificationService) NotifyPipelineFailed(ctx context.Context, userID, pipelineID, reason string) websocket.PublishResult {
	data := map[string]interface{}{"pipeline_id": pipelineID, "reason": reason}
	return n.dispatcher.Publish(ctx, websocket.MessageTypePipelineFailed, data, websocket.ToUser(userID))
}

// =============================================================================
// User notifications
// =============================================================================

func (n *NotificationService) NotifyAchievementUnlocked(ctx context.Context, userID string, achievement map[string]interface{}) websocket.PublishResult {
	return n.dispatcher.Publish(ctx, websocket.MessageTypeAchievementUnlocked, achievement, websocket.ToUser(userID))
}

func (n *NotificationService) NotifyDataExportReady(ctx context.Context, userID, exportID, downloadURL string) websocket.PublishResult {
	data := map[string]interface{}{
		"export_id":    exportID,
		"download_url": downloadURL,
	}
	return n.dispatcher.Publish(ctx, websocket.MessageTypeDataExportReady, data, websocket.ToUser(userID))
}

// NotifySystemMaintenance announces a maintenance window to every present user
func (n *NotificationService) NotifySystemMaintenance(ctx context.Context, window map[string]interface{}) websocket.PublishResult {
	return n.dispatcher.Publish(ctx, websocket.MessageTypeSystemMaintenance, window, websocket.Broadcast())
}
