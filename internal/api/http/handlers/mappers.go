package handlers

import (
	"github.com/spec-kit/helpdesk-escalation/internal/api/dto"
	"github.com/spec-kit/helpdesk-escalation/internal/domain"
	"github.com/spec-kit/helpdesk-escalation/internal/escalation"
	"github.com/spec-kit/helpdesk-escalation/internal/service"
)

func ticketResponse(t *domain.Ticket, status domain.SLAStatus) dto.TicketResponse {
	resp := dto.TicketResponse{
		ID:                  t.ID,
		Title:               t.Title,
		Description:         t.Description,
		RequesterID:         t.RequesterID,
		Priority:            t.Priority,
		Category:            t.Category,
		Status:              t.Status,
		SLAStatus:           status,
		SLATier:             t.SLATier,
		SLATarget:           t.SLATarget,
		SLATargetMs:         t.SLATarget.UnixMilli(),
		DemandFactorApplied: t.DemandFactorApplied,
		IsEscalated:         t.IsEscalated,
		AssignedAgentID:     t.AssignedAgentID,
		AssignedGroupID:     t.AssignedGroupID,
		CreatedAt:           t.CreatedAt,
		CreatedAtMs:         t.CreatedAt.UnixMilli(),
		UpdatedAt:           t.UpdatedAt,
	}
	if t.LinkedAsset != nil {
		resp.LinkedAsset = &dto.AssetResponse{ID: t.LinkedAsset.ID, ModelName: t.LinkedAsset.ModelName}
	}
	return resp
}

func ticketDetail(view *service.TicketView) dto.TicketDetailResponse {
	msgs := make([]dto.TicketMessageResponse, 0, len(view.Messages))
	for i := range view.Messages {
		msgs = append(msgs, ticketMessageResponse(&view.Messages[i]))
	}
	return dto.TicketDetailResponse{
		TicketResponse: ticketResponse(&view.Ticket, view.SLAStatus),
		Messages:       msgs,
	}
}

func ticketMessageResponse(msg *domain.TicketMessage) dto.TicketMessageResponse {
	return dto.TicketMessageResponse{
		ID:          msg.ID,
		TicketID:    msg.TicketID,
		MessageType: msg.MessageType,
		AuthorType:  msg.AuthorType,
		AuthorID:    msg.AuthorID,
		Body:        msg.Body,
		CreatedAt:   msg.CreatedAt,
	}
}

func suggestionResponse(score domain.AgentScore) dto.AgentSuggestionResponse {
	return dto.AgentSuggestionResponse{
		AgentID:    score.Agent.ID,
		AgentName:  score.Agent.Name,
		TotalScore: score.TotalScore,
		Breakdown: dto.ScoreBreakdownBody{
			SkillMatch:       score.Breakdown.SkillMatch,
			History:          score.Breakdown.History,
			Workload:         score.Breakdown.Workload,
			AssetFamiliarity: score.Breakdown.AssetFamiliarity,
		},
	}
}

func agentResponse(a *domain.Agent) dto.AgentResponse {
	skills := a.Skills
	if skills == nil {
		skills = []domain.TicketCategory{}
	}
	familiarity := a.AssetFamiliarity
	if familiarity == nil {
		familiarity = map[string]int{}
	}
	return dto.AgentResponse{
		ID:                a.ID,
		Name:              a.Name,
		Email:             a.Email,
		Role:              a.Role,
		Active:            a.Active,
		Skills:            skills,
		EfficiencyRating:  a.EfficiencyRating,
		ActiveTicketCount: a.ActiveTicketCount,
		AssetFamiliarity:  familiarity,
		CreatedAt:         a.CreatedAt,
	}
}

func ruleResponse(r *domain.EscalationRule) dto.RuleResponse {
	return dto.RuleResponse{
		ID:       r.ID,
		Name:     r.Name,
		IsActive: r.IsActive,
		Position: r.Position,
		Condition: dto.RuleConditionIO{
			Priority:  r.Condition.Priority,
			Category:  r.Condition.Category,
			SLAStatus: r.Condition.SLAStatus,
		},
		Action: dto.RuleActionIO{
			AssignToUserID: r.Action.AssignToUserID,
			TargetGroupID:  r.Action.TargetGroupID,
			NewPriority:    r.Action.NewPriority,
			Note:           r.Action.Note,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func ruleInput(req *dto.RuleRequest) service.RuleInput {
	return service.RuleInput{
		Name:     req.Name,
		IsActive: req.IsActive,
		Condition: domain.RuleCondition{
			Priority:  req.Condition.Priority,
			Category:  req.Condition.Category,
			SLAStatus: req.Condition.SLAStatus,
		},
		Action: domain.RuleAction{
			AssignToUserID: blankToNil(req.Action.AssignToUserID),
			TargetGroupID:  blankToNil(req.Action.TargetGroupID),
			NewPriority:    req.Action.NewPriority,
			Note:           req.Action.Note,
		},
	}
}

func blankToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func escalationRunResponse(result escalation.Result) dto.EscalationRunResponse {
	mutated := make(map[string]domain.Ticket, len(result.Mutated))
	for _, t := range result.Mutated {
		mutated[t.ID] = t
	}
	items := make([]dto.EscalationItemResponse, 0, len(result.Escalations))
	for _, esc := range result.Escalations {
		item := dto.EscalationItemResponse{
			TicketID:         esc.TicketID,
			RuleID:           esc.Rule.ID,
			RuleName:         esc.Rule.Name,
			SLAStatus:        esc.SLAStatus,
			DanglingAssignee: esc.DanglingAssignee,
			Message:          esc.Message.Body,
		}
		if t, ok := mutated[esc.TicketID]; ok {
			item.AssignedAgentID = t.AssignedAgentID
			item.AssignedGroupID = t.AssignedGroupID
			item.Priority = t.Priority
		}
		items = append(items, item)
	}
	return dto.EscalationRunResponse{
		RanAt:          result.RanAt,
		ActorID:        result.ActorID,
		Scanned:        result.Scanned,
		EscalatedCount: result.EscalatedCount,
		Escalations:    items,
	}
}

func auditResponse(e *domain.AuditLogEntry) dto.AuditLogResponse {
	details := e.Details
	if details == nil {
		details = map[string]any{}
	}
	return dto.AuditLogResponse{
		ID:        e.ID,
		Action:    e.Action,
		Severity:  e.Severity,
		ActorID:   e.ActorID,
		TicketID:  e.TicketID,
		RuleName:  e.RuleName,
		Details:   details,
		CreatedAt: e.CreatedAt,
	}
}
