// Package provider implements the EC2 cloud provider adapter: ephemeral
// instances for test matrix cells and the managed prefix list acting as the
// capacity-bounded access-grant list.
package provider

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	"github.com/forgeci/forge/internal/core/domain"
	"github.com/forgeci/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	workflowTagKey = "forge:workflow-id"
	distroTagKey   = "forge:distro"
)

var _ ports.CloudProvider = (*EC2)(nil)

// Options parameterize the EC2 provider.
type Options struct {
	Region        string
	AccessKey     string
	SecretKey     string
	SecurityGroup string
	PrefixListID  string
	KeyPairName   string
	InstanceType  string

	// GrantCapacity is the maximum entry count of the managed prefix list.
	GrantCapacity int
}

// EC2 implements ports.CloudProvider against the EC2 API.
// Prefix list mutations are serialized with a local mutex on top of the
// API's version-conditioned updates, so concurrent cells of one workflow
// cannot double-book capacity.
type EC2 struct {
	client *ec2.Client
	opts   Options

	grantMu sync.Mutex
}

// NewEC2 creates the provider with static or ambient credentials.
func NewEC2(ctx context.Context, opts Options) (*EC2, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load AWS configuration")
	}

	if opts.InstanceType == "" {
		opts.InstanceType = "t2.small"
	}
	if opts.GrantCapacity == 0 {
		opts.GrantCapacity = 60
	}

	return &EC2{
		client: ec2.NewFromConfig(awsCfg),
		opts:   opts,
	}, nil
}

// RunInstance launches an instance with the distribution's newest official
// AMI and tags it with the owning workflow id.
func (p *EC2) RunInstance(ctx context.Context, spec ports.InstanceSpec) (*domain.TestResource, error) {
	image, ok := distroImages[spec.Distro]
	if !ok {
		return nil, zerr.With(zerr.New("unknown distribution"), "distro", spec.Distro)
	}

	amiID, err := p.resolveAMI(ctx, image)
	if err != nil {
		return nil, err
	}

	out, err := p.client.RunInstances(ctx, &ec2.RunInstancesInput{
		ImageId:          aws.String(amiID),
		InstanceType:     ec2types.InstanceType(p.opts.InstanceType),
		KeyName:          aws.String(p.opts.KeyPairName),
		MinCount:         aws.Int32(1),
		MaxCount:         aws.Int32(1),
		SecurityGroupIds: []string{p.opts.SecurityGroup},
		TagSpecifications: []ec2types.TagSpecification{
			{
				ResourceType: ec2types.ResourceTypeInstance,
				Tags: []ec2types.Tag{
					{Key: aws.String("Name"), Value: aws.String("forge-test-" + spec.Distro)},
					{Key: aws.String(workflowTagKey), Value: aws.String(spec.WorkflowID)},
					{Key: aws.String(distroTagKey), Value: aws.String(spec.Distro)},
				},
			},
		},
	})
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "RunInstances failed"), "distro", spec.Distro)
	}
	if len(out.Instances) == 0 {
		return nil, zerr.New("RunInstances returned no instance")
	}

	handle := aws.ToString(out.Instances[0].InstanceId)
	address, err := p.waitForAddress(ctx, handle)
	if err != nil {
		// The instance exists but never became reachable; hand the handle
		// back so the caller can terminate it.
		return &domain.TestResource{Handle: handle, Kind: domain.ResourceEC2}, err
	}

	return &domain.TestResource{
		Handle:     handle,
		Kind:       domain.ResourceEC2,
		WorkflowID: spec.WorkflowID,
		Distro:     spec.Distro,
		Address:    address,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// resolveAMI picks the newest image matching the distribution's pattern.
func (p *EC2) resolveAMI(ctx context.Context, image distroImage) (string, error) {
	out, err := p.client.DescribeImages(ctx, &ec2.DescribeImagesInput{
		Owners: []string{image.owner},
		Filters: []ec2types.Filter{
			{Name: aws.String("name"), Values: []string{image.namePattern}},
			{Name: aws.String("state"), Values: []string{"available"}},
		},
	})
	if err != nil {
		return "", zerr.Wrap(err, "DescribeImages failed")
	}
	if len(out.Images) == 0 {
		return "", zerr.With(zerr.New("no AMI matches distribution"), "pattern", image.namePattern)
	}

	images := out.Images
	sort.Slice(images, func(i, j int) bool {
		return aws.ToString(images[i].CreationDate) > aws.ToString(images[j].CreationDate)
	})
	return aws.ToString(images[0].ImageId), nil
}

// waitForAddress polls until the instance is running with a public address.
func (p *EC2) waitForAddress(ctx context.Context, handle string) (string, error) {
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		out, err := p.client.DescribeInstances(waitCtx, &ec2.DescribeInstancesInput{
			InstanceIds: []string{handle},
		})
		if err == nil {
			for _, res := range out.Reservations {
				for _, inst := range res.Instances {
					if inst.State != nil && inst.State.Name == ec2types.InstanceStateNameRunning && inst.PublicIpAddress != nil {
						return aws.ToString(inst.PublicIpAddress), nil
					}
				}
			}
		}

		select {
		case <-waitCtx.Done():
			return "", zerr.With(zerr.Wrap(waitCtx.Err(), "instance never became reachable"), "instance", handle)
		case <-ticker.C:
		}
	}
}

// TerminateInstance destroys the instance. Unknown handles are not an error.
func (p *EC2) TerminateInstance(ctx context.Context, handle string) error {
	_, err := p.client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{handle},
	})
	if err != nil {
		if strings.Contains(err.Error(), "InvalidInstanceID.NotFound") {
			return nil
		}
		return zerr.With(zerr.Wrap(err, "TerminateInstances failed"), "instance", handle)
	}
	return nil
}

// ListInstances returns the live instances this tool has launched.
func (p *EC2) ListInstances(ctx context.Context) ([]domain.TestResource, error) {
	out, err := p.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("tag-key"), Values: []string{workflowTagKey}},
			{Name: aws.String("instance-state-name"), Values: []string{"pending", "running"}},
		},
	})
	if err != nil {
		return nil, zerr.Wrap(err, "DescribeInstances failed")
	}

	var resources []domain.TestResource
	for _, res := range out.Reservations {
		for _, inst := range res.Instances {
			resource := domain.TestResource{
				Handle:  aws.ToString(inst.InstanceId),
				Kind:    domain.ResourceEC2,
				Address: aws.ToString(inst.PublicIpAddress),
			}
			for _, tag := range inst.Tags {
				switch aws.ToString(tag.Key) {
				case workflowTagKey:
					resource.WorkflowID = aws.ToString(tag.Value)
				case distroTagKey:
					resource.Distro = aws.ToString(tag.Value)
				}
			}
			if inst.LaunchTime != nil {
				resource.CreatedAt = *inst.LaunchTime
			}
			resources = append(resources, resource)
		}
	}
	return resources, nil
}

// ListGrantEntries returns the current entries of the managed prefix list.
func (p *EC2) ListGrantEntries(ctx context.Context) ([]domain.AccessGrantEntry, error) {
	var entries []domain.AccessGrantEntry
	var token *string

	for {
		out, err := p.client.GetManagedPrefixListEntries(ctx, &ec2.GetManagedPrefixListEntriesInput{
			PrefixListId: aws.String(p.opts.PrefixListID),
			NextToken:    token,
		})
		if err != nil {
			return nil, zerr.Wrap(err, "GetManagedPrefixListEntries failed")
		}
		for _, e := range out.Entries {
			entries = append(entries, domain.AccessGrantEntry{
				CIDR:        aws.ToString(e.Cidr),
				Description: aws.ToString(e.Description),
			})
		}
		if out.NextToken == nil {
			return entries, nil
		}
		token = out.NextToken
	}
}

// AppendGrantEntry adds one entry, conditioned on the list's current
// version so racing workflows cannot lose updates.
func (p *EC2) AppendGrantEntry(ctx context.Context, entry domain.AccessGrantEntry) error {
	p.grantMu.Lock()
	defer p.grantMu.Unlock()

	version, err := p.currentVersion(ctx)
	if err != nil {
		return err
	}

	_, err = p.client.ModifyManagedPrefixList(ctx, &ec2.ModifyManagedPrefixListInput{
		PrefixListId:   aws.String(p.opts.PrefixListID),
		CurrentVersion: aws.Int64(version),
		AddEntries: []ec2types.AddPrefixListEntry{
			{Cidr: aws.String(entry.CIDR), Description: aws.String(entry.Description)},
		},
	})
	if err != nil {
		// Another runner may fill the last slot between our capacity check
		// and this call; the API rejection is the quota signal then.
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && strings.Contains(apiErr.ErrorCode(), "MaxEntries") {
			return zerr.With(zerr.Wrap(domain.ErrQuotaExceeded, err.Error()), "cidr", entry.CIDR)
		}
		return zerr.With(zerr.Wrap(err, "ModifyManagedPrefixList add failed"), "cidr", entry.CIDR)
	}
	return nil
}

// RemoveGrantEntries removes the entries with the given CIDRs.
func (p *EC2) RemoveGrantEntries(ctx context.Context, cidrs []string) error {
	if len(cidrs) == 0 {
		return nil
	}

	p.grantMu.Lock()
	defer p.grantMu.Unlock()

	version, err := p.currentVersion(ctx)
	if err != nil {
		return err
	}

	removals := make([]ec2types.RemovePrefixListEntry, 0, len(cidrs))
	for _, cidr := range cidrs {
		removals = append(removals, ec2types.RemovePrefixListEntry{Cidr: aws.String(cidr)})
	}

	_, err = p.client.ModifyManagedPrefixList(ctx, &ec2.ModifyManagedPrefixListInput{
		PrefixListId:   aws.String(p.opts.PrefixListID),
		CurrentVersion: aws.Int64(version),
		RemoveEntries:  removals,
	})
	if err != nil {
		return zerr.Wrap(err, "ModifyManagedPrefixList remove failed")
	}
	return nil
}

// GrantCapacity returns the provider-imposed maximum entry count.
func (p *EC2) GrantCapacity() int {
	return p.opts.GrantCapacity
}

func (p *EC2) currentVersion(ctx context.Context) (int64, error) {
	out, err := p.client.DescribeManagedPrefixLists(ctx, &ec2.DescribeManagedPrefixListsInput{
		PrefixListIds: []string{p.opts.PrefixListID},
	})
	if err != nil {
		return 0, zerr.Wrap(err, "DescribeManagedPrefixLists failed")
	}
	if len(out.PrefixLists) == 0 {
		return 0, zerr.With(zerr.New("prefix list not found"), "prefix_list_id", p.opts.PrefixListID)
	}
	return aws.ToInt64(out.PrefixLists[0].Version), nil
}
