// Package pricing holds the static monthly price table used to estimate the
// cost of a plan. Prices are on-demand us-east-1 list prices for a 730-hour
// month; they are estimates for comparison, not billing figures.
package pricing

import (
	"math"
	"strings"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/plan"
)

// Conservative fallbacks for SKUs absent from the tables below.
const (
	DefaultInstanceMonthly = 50.0
	DefaultDBClassMonthly  = 100.0
	DefaultEBSPerGBMonthly = 0.10
	DefaultEBSSizeGB       = 8.0
	DefaultRDSStorageGB    = 20.0

	NATGatewayMonthly   = 32.85
	LoadBalancerMonthly = 16.43
	ElasticIPMonthly    = 3.60

	// ProvisionedIOPSMonthly is the io1/io2 price per provisioned IOPS.
	ProvisionedIOPSMonthly = 0.065

	// RDSStoragePerGBMonthly is the gp2 price of RDS allocated storage.
	RDSStoragePerGBMonthly = 0.115
)

var instancePrices = map[ec2types.InstanceType]float64{
	ec2types.InstanceTypeT3Micro:   7.59,
	ec2types.InstanceTypeT3Small:   15.18,
	ec2types.InstanceTypeT3Medium:  30.37,
	ec2types.InstanceTypeT3Large:   60.74,
	ec2types.InstanceTypeM5Large:   70.08,
	ec2types.InstanceTypeM5Xlarge:  140.16,
	ec2types.InstanceTypeM52xlarge: 280.32,
	ec2types.InstanceTypeC5Large:   62.05,
	ec2types.InstanceTypeR5Large:   91.98,
}

var volumePricesPerGB = map[ec2types.VolumeType]float64{
	ec2types.VolumeTypeGp2:      0.10,
	ec2types.VolumeTypeGp3:      0.08,
	ec2types.VolumeTypeIo1:      0.125,
	ec2types.VolumeTypeIo2:      0.125,
	ec2types.VolumeTypeSt1:      0.045,
	ec2types.VolumeTypeSc1:      0.015,
	ec2types.VolumeTypeStandard: 0.05,
}

var dbClassPrices = map[string]float64{
	"db.t3.micro":  12.41,
	"db.t3.medium": 49.64,
	"db.m5.large":  124.10,
	"db.r5.large":  175.20,
}

// resourceCategories maps Terraform resource types to cost categories.
// Types not listed fall into "other".
var resourceCategories = map[string]string{
	"aws_instance":             models.CostCategoryCompute,
	"aws_launch_template":      models.CostCategoryCompute,
	"aws_autoscaling_group":    models.CostCategoryCompute,
	"aws_lambda_function":      models.CostCategoryCompute,
	"aws_ebs_volume":           models.CostCategoryStorage,
	"aws_s3_bucket":            models.CostCategoryStorage,
	"aws_efs_file_system":      models.CostCategoryStorage,
	"aws_nat_gateway":          models.CostCategoryNetwork,
	"aws_lb":                   models.CostCategoryNetwork,
	"aws_alb":                  models.CostCategoryNetwork,
	"aws_elb":                  models.CostCategoryNetwork,
	"aws_eip":                  models.CostCategoryNetwork,
	"aws_vpc_endpoint":         models.CostCategoryNetwork,
	"aws_db_instance":          models.CostCategoryDatabase,
	"aws_rds_cluster":          models.CostCategoryDatabase,
	"aws_rds_cluster_instance": models.CostCategoryDatabase,
	"aws_dynamodb_table":       models.CostCategoryDatabase,
	"aws_elasticache_cluster":  models.CostCategoryDatabase,
}

// Category returns the cost category of a Terraform resource type.
func Category(resourceType string) string {
	if c, ok := resourceCategories[resourceType]; ok {
		return c
	}
	return models.CostCategoryOther
}

// Quote is the monthly price of one configuration snapshot.
type Quote struct {
	Monthly    float64
	PricingKey string
	Defaulted  bool
}

// InstanceMonthly returns the monthly price of an EC2 instance type.
func InstanceMonthly(instanceType string) (float64, bool) {
	p, ok := instancePrices[ec2types.InstanceType(instanceType)]
	if !ok {
		return DefaultInstanceMonthly, false
	}
	return p, true
}

// DBClassMonthly returns the monthly price of an RDS instance class.
func DBClassMonthly(class string) (float64, bool) {
	p, ok := dbClassPrices[class]
	if !ok {
		return DefaultDBClassMonthly, false
	}
	return p, true
}

// VolumePerGBMonthly returns the monthly per-GB price of an EBS volume type.
func VolumePerGBMonthly(volumeType string) (float64, bool) {
	p, ok := volumePricesPerGB[ec2types.VolumeType(volumeType)]
	if !ok {
		return DefaultEBSPerGBMonthly, false
	}
	return p, true
}

// Price quotes the monthly cost of a resource configuration of the given
// type. A nil cfg (resource absent on that side of the change) costs zero.
// Resource types without a pricing model cost zero and are not defaulted.
func Price(resourceType string, cfg map[string]any) Quote {
	if cfg == nil {
		return Quote{}
	}
	switch resourceType {
	case "aws_instance":
		it := plan.String(cfg, "instance_type")
		p, ok := InstanceMonthly(it)
		return round(Quote{Monthly: p, PricingKey: it, Defaulted: !ok})

	case "aws_ebs_volume":
		vt := plan.String(cfg, "type")
		if vt == "" {
			vt = string(ec2types.VolumeTypeGp2)
		}
		perGB, ok := VolumePerGBMonthly(vt)
		size, hasSize := plan.Number(cfg, "size")
		if !hasSize {
			size = DefaultEBSSizeGB
		}
		monthly := perGB * size
		if vt == string(ec2types.VolumeTypeIo1) || vt == string(ec2types.VolumeTypeIo2) {
			iops, _ := plan.Number(cfg, "iops")
			monthly += iops * ProvisionedIOPSMonthly
		}
		return round(Quote{Monthly: monthly, PricingKey: vt, Defaulted: !ok})

	case "aws_db_instance", "aws_rds_cluster_instance":
		class := plan.String(cfg, "instance_class")
		p, ok := DBClassMonthly(class)
		if plan.IsTrue(cfg, "multi_az") {
			p *= 2
		}
		if storage, has := plan.Number(cfg, "allocated_storage"); has {
			p += storage * RDSStoragePerGBMonthly
		} else if resourceType == "aws_db_instance" {
			p += DefaultRDSStorageGB * RDSStoragePerGBMonthly
		}
		return round(Quote{Monthly: p, PricingKey: class, Defaulted: !ok})

	case "aws_nat_gateway":
		return Quote{Monthly: NATGatewayMonthly}

	case "aws_lb", "aws_alb", "aws_elb":
		return Quote{Monthly: LoadBalancerMonthly}

	case "aws_eip":
		return Quote{Monthly: ElasticIPMonthly}
	}
	return Quote{}
}

// InstanceFamily returns the family prefix of an instance type or DB class,
// e.g. "m4" for "m4.large" and "db.m4.large".
func InstanceFamily(instanceType string) string {
	t := strings.TrimPrefix(instanceType, "db.")
	if i := strings.IndexByte(t, '.'); i > 0 {
		return t[:i]
	}
	return t
}

// InstanceSize returns the size suffix of an instance type, e.g. "4xlarge".
func InstanceSize(instanceType string) string {
	if i := strings.LastIndexByte(instanceType, '.'); i >= 0 {
		return instanceType[i+1:]
	}
	return ""
}

func round(q Quote) Quote {
	q.Monthly = math.Round(q.Monthly*100) / 100
	return q
}
