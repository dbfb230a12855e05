package security

import (
	"strings"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/plan"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/rules"
)

const (
	sshPort = 22
	rdpPort = 3389
	maxPort = 65535
)

var sgTypes = []string{
	"aws_security_group",
	"aws_security_group_rule",
	"aws_vpc_security_group_ingress_rule",
}

// ingressRule is an inbound permission normalised from any of the three
// Terraform shapes: inline ingress blocks, aws_security_group_rule, and
// aws_vpc_security_group_ingress_rule.
type ingressRule struct {
	fromPort int
	toPort   int
	protocol string
	cidrs    []string
}

// allTraffic reports whether the rule permits every protocol and port.
func (r ingressRule) allTraffic() bool {
	if r.protocol == "-1" || strings.EqualFold(r.protocol, "all") {
		return true
	}
	return r.fromPort <= 0 && r.toPort >= maxPort
}

func (r ingressRule) covers(port int) bool {
	return r.fromPort <= port && port <= r.toPort
}

func (r ingressRule) openToWorld() bool {
	for _, c := range r.cidrs {
		if c == "0.0.0.0/0" || c == "::/0" {
			return true
		}
	}
	return false
}

func ingressRules(rc *models.ResourceChange) []ingressRule {
	cfg := rc.Change.After
	switch rc.Type {
	case "aws_security_group":
		var out []ingressRule
		for _, b := range plan.Blocks(cfg, "ingress") {
			out = append(out, toIngress(b, "protocol", "cidr_blocks", "ipv6_cidr_blocks"))
		}
		return out
	case "aws_security_group_rule":
		if plan.String(cfg, "type") != "ingress" {
			return nil
		}
		return []ingressRule{toIngress(cfg, "protocol", "cidr_blocks", "ipv6_cidr_blocks")}
	case "aws_vpc_security_group_ingress_rule":
		return []ingressRule{toIngress(cfg, "ip_protocol", "cidr_ipv4", "cidr_ipv6")}
	}
	return nil
}

func toIngress(cfg map[string]any, protoKey, v4Key, v6Key string) ingressRule {
	from, _ := plan.Number(cfg, "from_port")
	to, hasTo := plan.Number(cfg, "to_port")
	if !hasTo {
		to = from
	}
	cidrs := append(plan.Strings(cfg, v4Key), plan.Strings(cfg, v6Key)...)
	return ingressRule{
		fromPort: int(from),
		toPort:   int(to),
		protocol: plan.String(cfg, protoKey),
		cidrs:    cidrs,
	}
}

// openAdminPorts returns the admin ports (SSH, RDP) exposed to the world by
// rules that are not already all-traffic rules.
func openAdminPorts(rc *models.ResourceChange) []int {
	seen := make(map[int]bool)
	var ports []int
	for _, r := range ingressRules(rc) {
		if !r.openToWorld() || r.allTraffic() {
			continue
		}
		for _, port := range []int{sshPort, rdpPort} {
			if r.covers(port) && !seen[port] {
				seen[port] = true
				ports = append(ports, port)
			}
		}
	}
	return ports
}

func sgOpenAdminPortsRule() rules.Rule {
	return rules.Rule{
		ID:             "SEC_SG_OPEN_ADMIN_PORTS",
		Title:          "Security group exposes remote admin ports",
		Description:    "Inbound SSH (22) or RDP (3389) is allowed from 0.0.0.0/0 or ::/0.",
		Severity:       models.SeverityHigh,
		ResourceTypes:  sgTypes,
		Category:       CategoryNetworkSecurity,
		Recommendation: "Restrict SSH/RDP access to specific trusted IP ranges or use AWS Systems Manager Session Manager instead.",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			return len(openAdminPorts(rc)) > 0
		},
		Evidence: func(rc *models.ResourceChange) map[string]any {
			return map[string]any{"open_ports": openAdminPorts(rc)}
		},
	}
}

func sgOpenAllPortsRule() rules.Rule {
	return rules.Rule{
		ID:             "SEC_SG_OPEN_ALL_PORTS",
		Title:          "Security group allows all inbound traffic",
		Description:    "An ingress rule permits every protocol and port from the whole internet.",
		Severity:       models.SeverityCritical,
		ResourceTypes:  sgTypes,
		Category:       CategoryNetworkSecurity,
		Recommendation: "Replace the all-traffic rule with rules for the specific ports the workload serves.",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			for _, r := range ingressRules(rc) {
				if r.openToWorld() && r.allTraffic() {
					return true
				}
			}
			return false
		},
	}
}

// vpcFlowLogsMissingRule looks across the whole plan for an aws_flow_log
// attached to the VPC.
func vpcFlowLogsMissingRule() rules.Rule {
	return rules.Rule{
		ID:             "SEC_VPC_FLOW_LOGS_MISSING",
		Title:          "VPC flow logs not enabled",
		Description:    "No flow log is declared for the VPC, so network traffic cannot be audited after an incident.",
		Severity:       models.SeverityLow,
		ResourceTypes:  []string{"aws_vpc"},
		Category:       CategoryLogging,
		Recommendation: "Add an aws_flow_log with vpc_id pointing at this VPC and traffic_type = \"ALL\".",
		Predicate: func(rc *models.ResourceChange, p *models.Plan) bool {
			return len(plan.Companions(p, rc, "aws_flow_log", "vpc_id")) == 0
		},
	}
}

// lbPlaintextListenerRule flags HTTP listeners unless their default action
// redirects to HTTPS.
func lbPlaintextListenerRule() rules.Rule {
	return rules.Rule{
		ID:             "SEC_LB_PLAINTEXT_LISTENER",
		Title:          "Load balancer listener accepts plaintext HTTP",
		Description:    "The listener serves HTTP without redirecting to HTTPS, so traffic is unencrypted in transit.",
		Severity:       models.SeverityMedium,
		ResourceTypes:  []string{"aws_lb_listener", "aws_alb_listener"},
		Category:       CategoryEncryption,
		Recommendation: "Serve HTTPS with an ACM certificate and make the HTTP listener a redirect with protocol = \"HTTPS\".",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			if !strings.EqualFold(plan.String(rc.Change.After, "protocol"), "HTTP") {
				return false
			}
			for _, action := range plan.Blocks(rc.Change.After, "default_action") {
				if plan.String(action, "type") != "redirect" {
					continue
				}
				if strings.EqualFold(plan.String(plan.Block(action, "redirect"), "protocol"), "HTTPS") {
					return false
				}
			}
			return true
		},
	}
}

func instanceIMDSv1Rule() rules.Rule {
	return rules.Rule{
		ID:             "SEC_INSTANCE_IMDSV1",
		Title:          "Instance metadata service v1 enabled",
		Description:    "http_tokens is optional, so the instance metadata endpoint answers unauthenticated IMDSv1 requests that SSRF bugs can reach.",
		Severity:       models.SeverityMedium,
		ResourceTypes:  []string{"aws_instance", "aws_launch_template"},
		Category:       CategoryAccessControl,
		Recommendation: "Add a metadata_options block with http_tokens = \"required\".",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			opts := plan.Block(rc.Change.After, "metadata_options")
			if plan.String(opts, "http_endpoint") == "disabled" {
				return false
			}
			return plan.String(opts, "http_tokens") == "optional"
		},
	}
}
