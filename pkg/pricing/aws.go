package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/pricing/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/cloudquote/cloudquote/pkg/version"
)

const awsSourceLabel = "AWS Price List API"

// AWSOptions configures the AWS adapter.
type AWSOptions struct {
	// Region is the region whose prices are queried, not the API endpoint region.
	Region  string
	Profile string
	// Endpoint overrides the Price List API endpoint; AWS_ENDPOINT_URL is also
	// honored. Used to point the adapter at a mock.
	Endpoint string
	Timeout  time.Duration
}

// AWSAdapter resolves unit prices through the AWS Price List GetProducts API.
// The API itself is only served from us-east-1; the priced region travels as a
// regionCode filter.
type AWSAdapter struct {
	logger  *slog.Logger
	svc     *pricing.Client
	sts     *sts.Client
	region  string
	timeout time.Duration
}

// NewAWSAdapter loads the SDK configuration and builds the adapter.
func NewAWSAdapter(ctx context.Context, logger *slog.Logger, opts AWSOptions) (*AWSAdapter, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultFetchTimeout
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion("us-east-1"),
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = os.Getenv("AWS_ENDPOINT_URL")
	}
	if endpoint != "" {
		loadOpts = append(loadOpts, config.WithBaseEndpoint(endpoint))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws sdk config: %w", err)
	}
	cfg.APIOptions = append(cfg.APIOptions, withUserAgent())

	return &AWSAdapter{
		logger:  logger,
		svc:     pricing.NewFromConfig(cfg),
		sts:     sts.NewFromConfig(cfg),
		region:  opts.Region,
		timeout: opts.Timeout,
	}, nil
}

// withUserAgent tags outbound SDK calls so they are attributable in access logs.
func withUserAgent() func(*middleware.Stack) error {
	return func(stack *middleware.Stack) error {
		return stack.Build.Add(middleware.BuildMiddlewareFunc("CloudQuoteUA", func(ctx context.Context, input middleware.BuildInput, next middleware.BuildHandler) (
			middleware.BuildOutput, middleware.Metadata, error,
		) {
			if req, ok := input.Request.(*smithyhttp.Request); ok {
				ua := req.Header.Get("User-Agent")
				if ua == "" {
					ua = version.UserAgent()
				} else {
					ua = fmt.Sprintf("%s %s", version.UserAgent(), ua)
				}
				req.Header.Set("User-Agent", ua)
			}
			return next.HandleBuild(ctx, input)
		}), middleware.After)
	}
}

func (a *AWSAdapter) Provider() Provider { return ProviderAWS }

// VerifyIdentity validates the session credentials and returns the account id.
// Optional: the adapter works without credentials when pointed at a mock, and
// the Price List API accepts unsigned reads in some partitions.
func (a *AWSAdapter) VerifyIdentity(ctx context.Context) (string, error) {
	out, err := a.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("get caller identity: %w", err)
	}
	return aws.ToString(out.Account), nil
}

// FetchUnitPrice fetches the hourly or per-GB rate for a resolved SKU.
func (a *AWSAdapter) FetchUnitPrice(ctx context.Context, kind ResourceKind, skuKey string) (UnitPrice, error) {
	tCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var (
		price float64
		err   error
	)
	switch {
	case kind == KindCompute:
		price, err = a.fetchInstancePrice(tCtx, skuKey)
	case skuKey == "s3-standard":
		price, err = a.fetchS3StandardPrice(tCtx)
	case skuKey == "rds-mysql":
		price, err = a.fetchRDSMySQLPrice(tCtx)
	default:
		return UnitPrice{}, errNoRoute(ProviderAWS, skuKey)
	}
	if err != nil {
		a.logger.Warn("aws price fetch failed", "sku", skuKey, "error", err)
		return UnitPrice{}, awsUpstream(err, skuKey)
	}

	a.logger.Debug("aws price fetched", "sku", skuKey, "unit_cost", price)
	return UnitPrice{
		Provider:     ProviderAWS,
		ResourceKind: kind,
		SKUKey:       skuKey,
		UnitCost:     price,
		Currency:     "USD",
		SourceLabel:  awsSourceLabel,
		FetchedAt:    time.Now().UTC(),
		IsLive:       true,
	}, nil
}

func (a *AWSAdapter) fetchInstancePrice(ctx context.Context, instanceType string) (float64, error) {
	filters := []types.Filter{
		{Type: types.FilterTypeTermMatch, Field: aws.String("productFamily"), Value: aws.String("Compute Instance")},
		{Type: types.FilterTypeTermMatch, Field: aws.String("serviceCode"), Value: aws.String("AmazonEC2")},
		{Type: types.FilterTypeTermMatch, Field: aws.String("regionCode"), Value: aws.String(a.region)},
		{Type: types.FilterTypeTermMatch, Field: aws.String("instanceType"), Value: aws.String(instanceType)},
		{Type: types.FilterTypeTermMatch, Field: aws.String("tenancy"), Value: aws.String("Shared")},
		{Type: types.FilterTypeTermMatch, Field: aws.String("operatingSystem"), Value: aws.String("Linux")},
		{Type: types.FilterTypeTermMatch, Field: aws.String("preInstalledSw"), Value: aws.String("NA")},
	}
	return a.getFirstProductPrice(ctx, "AmazonEC2", filters)
}

func (a *AWSAdapter) fetchS3StandardPrice(ctx context.Context) (float64, error) {
	filters := []types.Filter{
		{Type: types.FilterTypeTermMatch, Field: aws.String("productFamily"), Value: aws.String("Storage")},
		{Type: types.FilterTypeTermMatch, Field: aws.String("serviceCode"), Value: aws.String("AmazonS3")},
		{Type: types.FilterTypeTermMatch, Field: aws.String("regionCode"), Value: aws.String(a.region)},
		{Type: types.FilterTypeTermMatch, Field: aws.String("storageClass"), Value: aws.String("General Purpose")},
	}
	return a.getFirstProductPrice(ctx, "AmazonS3", filters)
}

func (a *AWSAdapter) fetchRDSMySQLPrice(ctx context.Context) (float64, error) {
	filters := []types.Filter{
		{Type: types.FilterTypeTermMatch, Field: aws.String("productFamily"), Value: aws.String("Database Instance")},
		{Type: types.FilterTypeTermMatch, Field: aws.String("serviceCode"), Value: aws.String("AmazonRDS")},
		{Type: types.FilterTypeTermMatch, Field: aws.String("regionCode"), Value: aws.String(a.region)},
		{Type: types.FilterTypeTermMatch, Field: aws.String("databaseEngine"), Value: aws.String("MySQL")},
		{Type: types.FilterTypeTermMatch, Field: aws.String("instanceType"), Value: aws.String("db.t3.micro")},
		{Type: types.FilterTypeTermMatch, Field: aws.String("deploymentOption"), Value: aws.String("Single-AZ")},
	}
	return a.getFirstProductPrice(ctx, "AmazonRDS", filters)
}

func (a *AWSAdapter) getFirstProductPrice(ctx context.Context, serviceCode string, filters []types.Filter) (float64, error) {
	input := &pricing.GetProductsInput{
		ServiceCode: aws.String(serviceCode),
		Filters:     filters,
		MaxResults:  aws.Int32(1),
	}
	out, err := a.svc.GetProducts(ctx, input)
	if err != nil {
		return 0, err
	}
	if len(out.PriceList) == 0 {
		return 0, fmt.Errorf("no products matched in %s", a.region)
	}
	return parseOnDemandPrice(out.PriceList[0])
}

// parseOnDemandPrice digs the USD rate out of a Price List product document:
// terms.OnDemand -> term -> priceDimensions -> pricePerUnit.USD.
func parseOnDemandPrice(doc string) (float64, error) {
	type priceDimension struct {
		PricePerUnit map[string]string `json:"pricePerUnit"`
	}
	type term struct {
		PriceDimensions map[string]priceDimension `json:"priceDimensions"`
	}
	type product struct {
		Terms map[string]map[string]term `json:"terms"`
	}

	var p product
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return 0, fmt.Errorf("unparseable price document: %w", err)
	}

	for _, t := range p.Terms["OnDemand"] {
		for _, dim := range t.PriceDimensions {
			valStr, ok := dim.PricePerUnit["USD"]
			if !ok {
				continue
			}
			val, err := strconv.ParseFloat(valStr, 64)
			if err != nil {
				return 0, fmt.Errorf("unparseable price %q: %w", valStr, err)
			}
			return val, nil
		}
	}
	return 0, errors.New("no OnDemand USD price in document")
}

// awsUpstream classifies an SDK failure into the shared upstream error shape.
func awsUpstream(err error, skuKey string) *UpstreamError {
	if errors.Is(err, context.DeadlineExceeded) {
		return upstreamf(ProviderAWS, err, "timeout fetching sku %q", skuKey)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return upstreamf(ProviderAWS, err, "sku %q: %s", skuKey, apiErr.ErrorCode())
	}
	return upstreamf(ProviderAWS, err, "fetch sku %q", skuKey)
}
